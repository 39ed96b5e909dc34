// Package rpc serves and calls Connect unary procedures whose messages are
// plain Go structs encoded as JSON.
package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// JSONCodec encodes messages with encoding/json. It replaces Connect's
// default "json" codec, which only accepts protobuf messages.
type JSONCodec struct{}

// Name implements connect.Codec.
func (JSONCodec) Name() string { return "json" }

// Marshal implements connect.Codec.
func (JSONCodec) Marshal(msg any) ([]byte, error) { return json.Marshal(msg) }

// Unmarshal implements connect.Codec.
func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

// Route binds a procedure path to its handler.
type Route struct {
	Procedure string
	Handler   http.Handler
}

// Unary builds a Route for a unary procedure such as
// "/tripmate.v1.TripService/GetTrip".
func Unary[Req, Res any](
	procedure string,
	fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error),
	opts ...connect.HandlerOption,
) Route {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)
	return Route{
		Procedure: procedure,
		Handler:   connect.NewUnaryHandler(procedure, fn, opts...),
	}
}

// Mount registers routes on mux.
func Mount(mux *http.ServeMux, routes ...Route) {
	for _, r := range routes {
		mux.Handle(r.Procedure, r.Handler)
	}
}

// NewClient creates a client for one procedure on the server at baseURL.
func NewClient[Req, Res any](httpClient connect.HTTPClient, baseURL, procedure string, opts ...connect.ClientOption) *connect.Client[Req, Res] {
	opts = append([]connect.ClientOption{connect.WithCodec(JSONCodec{})}, opts...)
	return connect.NewClient[Req, Res](httpClient, strings.TrimRight(baseURL, "/")+procedure, opts...)
}

// Call is a shorthand for a unary call that only needs the response message.
func Call[Req, Res any](ctx context.Context, client *connect.Client[Req, Res], msg *Req, header http.Header) (*Res, error) {
	req := connect.NewRequest(msg)
	for k, vs := range header {
		for _, v := range vs {
			req.Header().Add(k, v)
		}
	}
	resp, err := client.CallUnary(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
