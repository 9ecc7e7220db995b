package v1

import (
	"context"
	"encoding/json"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/KirkDiggler/rpg-builder/internal/entities"
	"github.com/KirkDiggler/rpg-builder/internal/errors"
	"github.com/KirkDiggler/rpg-builder/internal/services/builder"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "rpg.builder.v1.BuilderService"

// OwnerMetadataKey carries the caller's identity on gRPC calls
const OwnerMetadataKey = "x-owner-id"

// BuilderServer is the gRPC surface of the builder. Messages are
// google.protobuf.Struct values shaped like the HTTP JSON bodies.
type BuilderServer interface {
	CreateDraft(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetDraft(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListDrafts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DeleteDraft(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateDraftName(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ApplyStep(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ValidateDraft(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetCatalogCollection(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// GRPCServer implements BuilderServer on top of the builder service.
// Errors are returned as domain errors; errors.UnaryServerInterceptor
// turns them into statuses with details.
type GRPCServer struct {
	builderService builder.Service
}

var _ BuilderServer = (*GRPCServer)(nil)

// NewGRPCServer creates the gRPC builder service
func NewGRPCServer(cfg *HandlerConfig) (*GRPCServer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &GRPCServer{builderService: cfg.BuilderService}, nil
}

// Register adds the builder service to r
func (s *GRPCServer) Register(r grpc.ServiceRegistrar) {
	r.RegisterService(&builderServiceDesc, s)
}

type draftIDRequest struct {
	ID string `json:"id"`
}

type grpcUpdateNameRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type grpcApplyStepRequest struct {
	ID           string          `json:"id"`
	Step         string          `json:"step"`
	Payload      json.RawMessage `json:"payload"`
	MarkComplete bool            `json:"mark_complete"`
}

type grpcCatalogRequest struct {
	Collection string `json:"collection"`
}

// CreateDraft starts a draft for the caller
func (s *GRPCServer) CreateDraft(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	owner, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var in createDraftRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}

	out, err := s.builderService.CreateDraft(ctx, &builder.CreateDraftInput{
		OwnerID:       owner,
		Name:          in.Name,
		StartingLevel: in.StartingLevel,
		AllowFeats:    in.AllowFeats,
		VariantFlags:  in.VariantFlags,
	})
	if err != nil {
		return nil, err
	}
	return toStruct(draftResponse{Draft: out.Draft})
}

// GetDraft returns one draft with its progress
func (s *GRPCServer) GetDraft(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	owner, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var in draftIDRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}

	out, err := s.builderService.GetDraft(ctx, &builder.GetDraftInput{DraftID: in.ID, OwnerID: owner})
	if err != nil {
		return nil, err
	}
	return toStruct(draftResponse{Draft: out.Draft, Progress: out.Progress})
}

// ListDrafts returns the caller's draft summaries, newest first
func (s *GRPCServer) ListDrafts(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	owner, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	out, err := s.builderService.ListDrafts(ctx, &builder.ListDraftsInput{OwnerID: owner})
	if err != nil {
		return nil, err
	}
	summaries := out.Drafts
	if summaries == nil {
		summaries = []*entities.DraftSummary{}
	}
	return toStruct(listDraftsResponse{Drafts: summaries})
}

// DeleteDraft removes a draft
func (s *GRPCServer) DeleteDraft(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	owner, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var in draftIDRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}

	if _, err := s.builderService.DeleteDraft(ctx, &builder.DeleteDraftInput{DraftID: in.ID, OwnerID: owner}); err != nil {
		return nil, err
	}
	return &structpb.Struct{}, nil
}

// UpdateDraftName renames a draft
func (s *GRPCServer) UpdateDraftName(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	owner, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var in grpcUpdateNameRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}

	out, err := s.builderService.UpdateDraftName(ctx, &builder.UpdateDraftNameInput{
		DraftID: in.ID,
		OwnerID: owner,
		Name:    in.Name,
	})
	if err != nil {
		return nil, err
	}
	return toStruct(draftResponse{Draft: out.Draft})
}

// ApplyStep validates and stores one step payload
func (s *GRPCServer) ApplyStep(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	owner, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var in grpcApplyStepRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}

	out, err := s.builderService.ApplyStep(ctx, &builder.ApplyStepInput{
		DraftID:      in.ID,
		OwnerID:      owner,
		Step:         entities.StepKind(in.Step),
		Payload:      in.Payload,
		MarkComplete: in.MarkComplete,
	})
	if err != nil {
		return nil, err
	}
	return toStruct(draftResponse{Draft: out.Draft, Progress: out.Progress})
}

// ValidateDraft reports progress against the current catalog
func (s *GRPCServer) ValidateDraft(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	owner, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var in draftIDRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}

	out, err := s.builderService.ValidateDraft(ctx, &builder.ValidateDraftInput{DraftID: in.ID, OwnerID: owner})
	if err != nil {
		return nil, err
	}
	return toStruct(validationResponse{Progress: out.Progress, Status: out.Status})
}

// GetCatalogCollection returns one reference data collection. No owner is needed.
func (s *GRPCServer) GetCatalogCollection(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in grpcCatalogRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}

	out, err := s.builderService.GetCatalogCollection(ctx, &builder.GetCatalogCollectionInput{Name: in.Collection})
	if err != nil {
		return nil, err
	}
	return toStruct(catalogResponse{Collection: in.Collection, Items: out.Items})
}

func ownerFromContext(ctx context.Context) (string, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	for _, v := range md.Get(OwnerMetadataKey) {
		if owner := strings.TrimSpace(v); owner != "" {
			return owner, nil
		}
	}
	return "", errors.InvalidArgumentf("%s metadata is required", OwnerMetadataKey)
}

// fromStruct decodes a Struct request through its JSON form so gRPC and HTTP
// share request shapes
func fromStruct(req *structpb.Struct, v any) error {
	if req == nil {
		return nil
	}
	raw, err := protojson.Marshal(req)
	if err != nil {
		return errors.InvalidArgumentf("malformed request: %v", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.InvalidArgumentf("malformed request: %v", err)
	}
	return nil
}

func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode response")
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, errors.Wrapf(err, "failed to encode response")
	}
	return out, nil
}

func unaryMethod(name string, call func(BuilderServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(BuilderServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(BuilderServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

var builderServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BuilderServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("CreateDraft", BuilderServer.CreateDraft),
		unaryMethod("GetDraft", BuilderServer.GetDraft),
		unaryMethod("ListDrafts", BuilderServer.ListDrafts),
		unaryMethod("DeleteDraft", BuilderServer.DeleteDraft),
		unaryMethod("UpdateDraftName", BuilderServer.UpdateDraftName),
		unaryMethod("ApplyStep", BuilderServer.ApplyStep),
		unaryMethod("ValidateDraft", BuilderServer.ValidateDraft),
		unaryMethod("GetCatalogCollection", BuilderServer.GetCatalogCollection),
	},
	Streams: []grpc.StreamDesc{},
}
