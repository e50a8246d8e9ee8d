package translate

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName and TranslateMethod identify the seq2seq service. Requests
// and responses are google.protobuf.Struct values, so no generated stubs
// are needed on either side.
const (
	ServiceName     = "signlens.translate.v1.Translator"
	TranslateMethod = "/" + ServiceName + "/Translate"
)

// GRPCOptions configures the remote translator.
type GRPCOptions struct {
	Timeout  time.Duration
	NumBeams int
	// DialOptions are appended to the defaults, e.g. a bufconn dialer in tests.
	DialOptions []grpc.DialOption
}

// GRPCTranslator calls the Python vinai-translate-en2vi service over gRPC.
type GRPCTranslator struct {
	conn *grpc.ClientConn
	addr string
	opts GRPCOptions
}

// NewGRPC creates a client for addr. The connection is established lazily.
func NewGRPC(addr string, opts GRPCOptions) (*GRPCTranslator, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.NumBeams <= 0 {
		opts.NumBeams = 5
	}

	dial := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                30 * time.Second,
			Timeout:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	}
	dial = append(dial, opts.DialOptions...)

	conn, err := grpc.NewClient(addr, dial...)
	if err != nil {
		return nil, fmt.Errorf("could not create translator client for %s: %w", addr, err)
	}

	return &GRPCTranslator{conn: conn, addr: addr, opts: opts}, nil
}

// Translate sends one batch and waits at most the configured timeout.
func (g *GRPCTranslator) Translate(ctx context.Context, texts []string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	req, err := NewRequest(texts, g.opts.NumBeams)
	if err != nil {
		return nil, err
	}

	resp := &structpb.Struct{}
	if err := g.conn.Invoke(ctx, TranslateMethod, req, resp); err != nil {
		return nil, fmt.Errorf("translate via %s: %w", g.addr, err)
	}

	out := Texts(resp)
	if err := checkCount(texts, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *GRPCTranslator) Close() error {
	return g.conn.Close()
}

// NewRequest builds the request message for texts.
func NewRequest(texts []string, numBeams int) (*structpb.Struct, error) {
	list := make([]any, len(texts))
	for i, t := range texts {
		list[i] = t
	}
	return structpb.NewStruct(map[string]any{
		"texts":     list,
		"num_beams": numBeams,
		"src_lang":  SourceLang,
		"tgt_lang":  TargetLang,
	})
}

// Texts extracts the "texts" list of a request or response.
func Texts(s *structpb.Struct) []string {
	values := s.GetFields()["texts"].GetListValue().GetValues()
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v.GetStringValue())
	}
	return out
}

// RegisterServer serves t under ServiceName on s.
func RegisterServer(s grpc.ServiceRegistrar, t Translator) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*Translator)(nil),
		Methods: []grpc.MethodDesc{{
			MethodName: "Translate",
			Handler:    translateHandler,
		}},
		Metadata: "signlens/translate/v1/translator.proto",
	}, t)
}

func translateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := &structpb.Struct{}
	if err := dec(in); err != nil {
		return nil, err
	}
	handle := func(ctx context.Context, req any) (any, error) {
		out, err := srv.(Translator).Translate(ctx, Texts(req.(*structpb.Struct)))
		if err != nil {
			return nil, err
		}
		list := make([]any, len(out))
		for i, t := range out {
			list[i] = t
		}
		return structpb.NewStruct(map[string]any{"texts": list})
	}
	if interceptor == nil {
		return handle(ctx, in)
	}
	return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: TranslateMethod}, handle)
}
