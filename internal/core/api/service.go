// Package api implements the formkeeper gRPC form service.
//
// The service is a thin layer over normalize, preview and store. Messages
// are google.protobuf.Struct documents so clients in any language can send
// the same loosely typed payloads the backend already stores.
package api

import (
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/formkeeper/internal/core/config"
	"github.com/solatis/formkeeper/internal/core/store"
)

// FormService implements FormServer.
type FormService struct {
	repo    store.Repository
	cfg     *config.ServiceConfig
	journal *Journal
}

var _ FormServer = (*FormService)(nil)

// NewFormService creates the service. The revision journal directory is
// created when missing.
func NewFormService(repo store.Repository, cfg *config.ServiceConfig) (*FormService, error) {
	if repo == nil {
		return nil, goerr.New("repo cannot be nil")
	}
	if cfg == nil {
		return nil, goerr.New("cfg cannot be nil")
	}

	journal, err := NewJournal(cfg.JournalDir())
	if err != nil {
		return nil, err
	}

	return &FormService{
		repo:    repo,
		cfg:     cfg,
		journal: journal,
	}, nil
}

func stringField(in *structpb.Struct, key string) string {
	return in.GetFields()[key].GetStringValue()
}

// objectField returns the object member key, or nil when absent. A member
// of another type is an error.
func objectField(in *structpb.Struct, key string) (map[string]any, error) {
	v, ok := in.GetFields()[key]
	if !ok {
		return nil, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, nil
	}
	obj := v.GetStructValue()
	if obj == nil {
		return nil, goerr.Wrap(ErrInvalidRequest, "member is not an object", goerr.V("member", key))
	}
	return obj.AsMap(), nil
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build response")
	}
	return out, nil
}

func stringList(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
