package consts

const (
	// WorkspaceUpdatesChannel is the redis pub/sub channel carrying accepted
	// write notifications from the API to the stream fan-out.
	WorkspaceUpdatesChannel = "workspace-updates"

	// WorkspaceCacheKeyPrefix prefixes the redis key caching a workspace
	// document.
	WorkspaceCacheKeyPrefix = "workspace:"

	// WorkspaceStreamPrefix prefixes the websocket channel name clients
	// subscribe to for one workspace.
	WorkspaceStreamPrefix = "workspace:"
)
