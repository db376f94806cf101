package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nyashahama/mystery-shopper-backend/internal/audit"
	"github.com/nyashahama/mystery-shopper-backend/internal/catalog"
	"github.com/nyashahama/mystery-shopper-backend/internal/intake"
	"github.com/nyashahama/mystery-shopper-backend/internal/registry"
	"github.com/nyashahama/mystery-shopper-backend/internal/scoring"
)

// Catalogs is the slice of *registry.Registry the service uses.
type Catalogs interface {
	Current() *registry.Snapshot
	Source(name string) (catalog.Source, bool)
	SourceNames() []string
}

// Service implements ScoringServer.
type Service struct {
	catalogs Catalogs
	logger   *slog.Logger
}

func NewService(catalogs Catalogs, logger *slog.Logger) *Service {
	return &Service{catalogs: catalogs, logger: logger}
}

// NewServer returns a grpc.Server with the scoring service registered and
// request logging installed.
func NewServer(svc ScoringServer, logger *slog.Logger) *grpc.Server {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(
		recoverInterceptor(logger),
		loggerInterceptor(logger),
	))
	Register(s, svc)
	return s
}

// ─── PreviewScore ─────────────────────────────────────────────────────────────

type previewRequest struct {
	Scores []scoring.Answer `json:"scores"`
}

func (s *Service) PreviewScore(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req previewRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode request: %v", err)
	}

	snap := s.catalogs.Current()
	if snap == nil {
		return nil, status.Error(codes.Unavailable, "catalog not loaded")
	}

	answers, err := intake.NewValidator(snap.Catalog).ValidateScores(req.Scores)
	if err != nil {
		return nil, validationStatus(err)
	}

	report := scoring.Score(scoring.Submission{Scores: answers}, snap.Catalog, snap.Dependencies, snap.Weights)
	return toStruct(map[string]any{
		"catalog_version": snap.Version.String(),
		"catalog_source":  snap.Source,
		"report":          report,
	})
}

// ─── Diagnostics ──────────────────────────────────────────────────────────────

type diagnosticsRequest struct {
	A      string `json:"a"`
	B      string `json:"b"`
	Target string `json:"target"`
}

func (s *Service) Diagnostics(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req diagnosticsRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode request: %v", err)
	}
	if req.A == "" {
		req.A = catalog.SourceCurated
	}
	if req.B == "" {
		req.B = catalog.SourceTabular
	}
	if req.Target != "" {
		req.Target = catalog.NormalizeID(req.Target)
		if !catalog.ValidID(req.Target) {
			return nil, status.Error(codes.InvalidArgument, "invalid target question id")
		}
	}

	a, err := s.load(ctx, strings.ToLower(req.A))
	if err != nil {
		return nil, err
	}
	b, err := s.load(ctx, strings.ToLower(req.B))
	if err != nil {
		return nil, err
	}

	return toStruct(audit.Audit(a, b, req.Target))
}

func (s *Service) load(ctx context.Context, name string) (audit.Named, error) {
	src, ok := s.catalogs.Source(name)
	if !ok {
		return audit.Named{}, status.Errorf(codes.InvalidArgument,
			"unknown source %q (known: %s)", name, strings.Join(s.catalogs.SourceNames(), ", "))
	}
	cat, err := src.Load(ctx)
	if errors.Is(err, catalog.ErrCatalogUnavailable) {
		return audit.Named{}, status.Errorf(codes.Unavailable, "source %q is unavailable", name)
	}
	if err != nil {
		s.logger.Error("rpc: load source", "source", name, "error", err)
		return audit.Named{}, status.Error(codes.Internal, "internal server error")
	}
	return audit.Named{Name: name, Catalog: cat}, nil
}

// ─── HELPERS ─────────────────────────────────────────────────────────────────

// fromStruct decodes a Struct into dst through its JSON form.
func fromStruct(in *structpb.Struct, dst any) error {
	b, err := in.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

// toStruct encodes v through its JSON form, keeping the HTTP field names.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := new(structpb.Struct)
	if err := out.UnmarshalJSON(b); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// validationStatus reports every field failure in one InvalidArgument.
func validationStatus(err error) error {
	fields := intake.Fields(err)
	if len(fields) == 0 {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, f.Error())
	}
	return status.Error(codes.InvalidArgument, "validation failed: "+strings.Join(msgs, "; "))
}

func loggerInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("rpc",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}

func recoverInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if p := recover(); p != nil {
				logger.Error("rpc: panic", "method", info.FullMethod, "panic", fmt.Sprint(p))
				err = status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}
