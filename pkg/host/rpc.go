package host

import (
	"context"
	"net/rpc"
	"reflect"

	"github.com/hashicorp/go-plugin"
)

// Metadata identifies the plugin an updater serves.
type Metadata struct {
	Slug     string `json:"slug"`
	FilePath string `json:"file_path"`
	Version  string `json:"version"`
}

// Updater is the interface an updater exposes over go-plugin RPC.
type Updater interface {
	// QueryInfo answers an information query.
	QueryInfo(ctx context.Context, env Environment, result *PluginInformation, action string, args InfoArgs) *PluginInformation

	// CheckUpdate runs the update check over transient.
	CheckUpdate(ctx context.Context, env Environment, transient *Transient) *Transient

	// GetMetadata returns the local plugin metadata.
	GetMetadata() Metadata
}

// UpdaterRPC implements the go-plugin Plugin interface for updaters.
type UpdaterRPC struct {
	plugin.Plugin
	Impl Updater
}

// Server returns an RPC server for this plugin.
func (p *UpdaterRPC) Server(*plugin.MuxBroker) (any, error) {
	return &UpdaterRPCServer{Impl: p.Impl}, nil
}

// Client returns an RPC client for this plugin.
func (p *UpdaterRPC) Client(_ *plugin.MuxBroker, c *rpc.Client) (any, error) {
	return &UpdaterRPCClient{client: c}, nil
}

// QueryInfoArgs is the RPC request of QueryInfo.
type QueryInfoArgs struct {
	Env    Environment
	Result *PluginInformation
	Action string
	Args   InfoArgs
}

// QueryInfoReply is the RPC reply of QueryInfo.
type QueryInfoReply struct {
	Result *PluginInformation
}

// CheckUpdateArgs is the RPC request of CheckUpdate.
type CheckUpdateArgs struct {
	Env       Environment
	Transient *Transient
}

// CheckUpdateReply is the RPC reply of CheckUpdate.
type CheckUpdateReply struct {
	Transient *Transient
}

// UpdaterRPCServer is the RPC server implementation for updaters.
type UpdaterRPCServer struct {
	Impl Updater
}

// QueryInfo implements the RPC method for information queries.
func (s *UpdaterRPCServer) QueryInfo(args QueryInfoArgs, resp *QueryInfoReply) error {
	resp.Result = s.Impl.QueryInfo(context.Background(), args.Env, args.Result, args.Action, args.Args)
	return nil
}

// CheckUpdate implements the RPC method for update checks.
func (s *UpdaterRPCServer) CheckUpdate(args CheckUpdateArgs, resp *CheckUpdateReply) error {
	resp.Transient = s.Impl.CheckUpdate(context.Background(), args.Env, args.Transient)
	return nil
}

// GetMetadata implements the RPC method for fetching plugin metadata.
func (s *UpdaterRPCServer) GetMetadata(_ any, resp *Metadata) error {
	*resp = s.Impl.GetMetadata()
	return nil
}

// UpdaterRPCClient is the RPC client implementation for updaters.
// Transport failures and pass-through replies return the caller's input
// itself, not a decoded copy.
type UpdaterRPCClient struct {
	client *rpc.Client
}

// QueryInfo calls the remote QueryInfo method.
func (c *UpdaterRPCClient) QueryInfo(_ context.Context, env Environment, result *PluginInformation, action string, args InfoArgs) *PluginInformation {
	var reply QueryInfoReply
	err := c.client.Call("Plugin.QueryInfo", QueryInfoArgs{
		Env:    env,
		Result: result,
		Action: action,
		Args:   args,
	}, &reply)
	if err != nil || sameInfo(reply.Result, result) {
		return result
	}
	return reply.Result
}

// CheckUpdate calls the remote CheckUpdate method.
func (c *UpdaterRPCClient) CheckUpdate(_ context.Context, env Environment, transient *Transient) *Transient {
	var reply CheckUpdateReply
	err := c.client.Call("Plugin.CheckUpdate", CheckUpdateArgs{
		Env:       env,
		Transient: transient,
	}, &reply)
	if err != nil || transient == nil || reply.Transient == nil {
		return transient
	}
	mergeResponses(transient, reply.Transient.Response)
	return transient
}

// sameInfo compares information results the way gob transports them:
// empty maps equal nil maps and a nil result equals a zero one.
func sameInfo(a, b *PluginInformation) bool {
	var x, y PluginInformation
	if a != nil {
		x = *a
	}
	if b != nil {
		y = *b
	}
	for _, m := range []*map[string]string{&x.Sections, &y.Sections, &x.Banners, &y.Banners} {
		if len(*m) == 0 {
			*m = nil
		}
	}
	return reflect.DeepEqual(x, y)
}

// mergeResponses copies new or changed update entries into transient.
// Updaters only add responses, so the caller's own transient is returned
// and keeps everything gob does not carry (empty maps, monotonic time).
func mergeResponses(transient *Transient, responses map[string]*Update) {
	for file, update := range responses {
		if current, ok := transient.Response[file]; ok && reflect.DeepEqual(current, update) {
			continue
		}
		if transient.Response == nil {
			transient.Response = make(map[string]*Update)
		}
		transient.Response[file] = update
	}
}

// GetMetadata calls the remote GetMetadata method.
func (c *UpdaterRPCClient) GetMetadata() Metadata {
	var meta Metadata
	if err := c.client.Call("Plugin.GetMetadata", new(any), &meta); err != nil {
		return Metadata{}
	}
	return meta
}

// Attach registers a remote updater's handlers with h, so an updater running
// out of process behaves like one registered in-process.
func Attach(h Host, u Updater) {
	h.OnQueryInfo(func(ctx context.Context, result *PluginInformation, action string, args InfoArgs) *PluginInformation {
		return u.QueryInfo(ctx, h.Environment(), result, action, args)
	})
	h.OnCheckUpdate(func(ctx context.Context, transient *Transient) *Transient {
		return u.CheckUpdate(ctx, h.Environment(), transient)
	})
}
