package cnst

const (
	// AppName is the canonical name of the service
	AppName = "gloamd"
	// CommandName is the name of the CLI command
	CommandName = "gloamd"
)

const (
	// HeaderAPIKey carries the client credential on authenticated routes
	HeaderAPIKey = "X-API-KEY"
	// CtxClientName is the gin context key holding the authenticated
	// client's display name.
	CtxClientName = "client_name"
)
