// Package compute talks to the cloud provider that hosts dedicated
// game-server machines. The core only ever needs four calls: create an
// instance, poll a long-running operation, read instance network metadata,
// and delete an instance.
package compute

import "context"

type OperationStatus string

const (
	OperationPending OperationStatus = "PENDING"
	OperationRunning OperationStatus = "RUNNING"
	OperationDone    OperationStatus = "DONE"
)

// Operation is the pollable handle returned by instance create/delete calls.
type Operation struct {
	ID     string          `json:"id"`
	Status OperationStatus `json:"status"`
	Error  string          `json:"error,omitempty"`
}

func (o Operation) Done() bool {
	return o.Status == OperationDone
}

type CreateInstanceRequest struct {
	Name            string            `json:"name"`
	MachineTemplate string            `json:"machine_template"`
	Labels          map[string]string `json:"labels,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

type AccessConfig struct {
	ExternalIP string `json:"external_ip"`
}

type NetworkInterface struct {
	AccessConfigs []AccessConfig `json:"access_configs"`
}

type Instance struct {
	Name              string             `json:"name"`
	Zone              string             `json:"zone"`
	Status            string             `json:"status"`
	NetworkInterfaces []NetworkInterface `json:"network_interfaces"`
}

// ExternalAddress is the first interface's first access-config address, or
// empty while the provider is still assigning one.
func (i Instance) ExternalAddress() string {
	if len(i.NetworkInterfaces) == 0 || len(i.NetworkInterfaces[0].AccessConfigs) == 0 {
		return ""
	}
	return i.NetworkInterfaces[0].AccessConfigs[0].ExternalIP
}

type Client interface {
	CreateInstance(ctx context.Context, req CreateInstanceRequest) (string, error)
	GetOperation(ctx context.Context, operationID string) (*Operation, error)
	GetInstance(ctx context.Context, name string) (*Instance, error)
	DeleteInstance(ctx context.Context, name string) (string, error)
}
