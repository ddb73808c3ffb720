package types

type ServiceMode string

// Gateway - hosts one ride reconciler per authenticated actor behind HTTP and websocket
// Relay   - republishes database change notifications into the RabbitMQ ride exchange
const (
	GatewayService ServiceMode = "gateway"
	RelayService   ServiceMode = "relay"
)

// FeedDriver selects the change feed implementation
type FeedDriver string

const (
	FeedPostgres FeedDriver = "postgres"
	FeedRabbitMQ FeedDriver = "rabbitmq"
)

// StoreDriver selects the gateway ride store
type StoreDriver string

const (
	StorePostgres StoreDriver = "postgres"
	StoreMemory   StoreDriver = "memory"
)

// Role of the acting user
type Role string

func (r Role) String() string {
	return string(r)
}

func (r Role) Valid() bool {
	return r == RolePassenger || r == RoleDriver
}

const (
	RolePassenger Role = "passenger"
	RoleDriver    Role = "driver"
)

// VehicleClass is a free-form tag attached to a ride
type VehicleClass string

const DefaultVehicleClass VehicleClass = "standard"
