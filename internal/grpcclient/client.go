// Package grpcclient provides a client for the inference gRPC server:
// text extraction, language identification and translation handles.
package grpcclient

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	apperrors "github.com/GriffinCanCode/autotranslator/internal/errors"
	"github.com/GriffinCanCode/autotranslator/internal/lang"
	"github.com/GriffinCanCode/autotranslator/internal/resilience"
	"github.com/GriffinCanCode/autotranslator/internal/trace"
	"github.com/GriffinCanCode/autotranslator/internal/translate"
	pb "github.com/GriffinCanCode/autotranslator/pkg/pb"
)

// Config holds connection settings.
type Config struct {
	Addr             string
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
	CallTimeout      time.Duration
	DownloadTimeout  time.Duration
	RequireWifi      bool
}

// DefaultConfig returns production-ready defaults for addr.
func DefaultConfig(addr string) Config {
	return Config{
		Addr:             addr,
		KeepaliveTime:    DefaultKeepaliveTime,
		KeepaliveTimeout: DefaultKeepaliveTimeout,
		CallTimeout:      DefaultCallTimeout,
		DownloadTimeout:  DefaultDownloadTimeout,
	}
}

// Client wraps all inference service clients, each behind its own breaker.
type Client struct {
	cfg         Config
	conn        *grpc.ClientConn
	OCR         pb.OCRServiceClient
	Language    pb.LanguageServiceClient
	Translation pb.TranslationServiceClient
	breakers    map[string]*resilience.Breaker
}

var (
	_ lang.Detector             = (*Client)(nil)
	_ translate.Factory         = (*Client)(nil)
	_ translate.ModelDownloader = (*Client)(nil)
)

// New creates a new inference client. The connection is established lazily.
func New(cfg Config, extra ...grpc.DialOption) (*Client, error) {
	def := DefaultConfig(cfg.Addr)
	if cfg.KeepaliveTime <= 0 {
		cfg.KeepaliveTime = def.KeepaliveTime
	}
	if cfg.KeepaliveTimeout <= 0 {
		cfg.KeepaliveTimeout = def.KeepaliveTimeout
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = def.CallTimeout
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = def.DownloadTimeout
	}

	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                cfg.KeepaliveTime,
			Timeout:             cfg.KeepaliveTimeout,
			PermitWithoutStream: true,
		}),
		grpc.WithUnaryInterceptor(trace.UnaryClientInterceptor()),
	}, extra...)

	conn, err := grpc.NewClient(cfg.Addr, opts...)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.Unavailable, "dial inference server %s", cfg.Addr)
	}

	return &Client{
		cfg:         cfg,
		conn:        conn,
		OCR:         pb.NewOCRServiceClient(conn),
		Language:    pb.NewLanguageServiceClient(conn),
		Translation: pb.NewTranslationServiceClient(conn),
		breakers: map[string]*resilience.Breaker{
			ServiceOCR:         resilience.New(resilience.TickConfig(ServiceOCR)),
			ServiceLanguage:    resilience.New(resilience.TickConfig(ServiceLanguage)),
			ServiceTranslation: resilience.New(resilience.TickConfig(ServiceTranslation)),
		},
	}, nil
}

// Close closes the gRPC connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// ConnState reports the connectivity state of the underlying connection.
func (c *Client) ConnState() string {
	return strings.ToLower(c.conn.GetState().String())
}

// Breakers returns a snapshot of every guarded service's breaker.
func (c *Client) Breakers() map[string]resilience.Stats {
	out := make(map[string]resilience.Stats, len(c.breakers))
	for name, b := range c.breakers {
		out[name] = b.Stats()
	}
	return out
}

// call runs fn under the named breaker with a deadline and converts failures to AppErrors.
func call[T any](ctx context.Context, c *Client, service string, timeout time.Duration, stage apperrors.Code, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := resilience.Call(c.breakers[service], func() (T, error) {
		return fn(ctx)
	})
	if err != nil {
		return out, convert(err, service, stage)
	}
	return out, nil
}

// convert keeps server-reported codes and transport codes; anything generic
// is attributed to the failing stage.
func convert(err error, service string, stage apperrors.Code) error {
	if errors.Is(err, resilience.ErrOpen) {
		return apperrors.Wrapf(err, apperrors.Unavailable, "%s service unavailable", service).
			WithMetadata("service", service)
	}
	appErr := apperrors.FromGRPCError(err)
	if appErr.Code == apperrors.Unknown || appErr.Code == apperrors.Internal {
		appErr = apperrors.Wrapf(err, stage, "%s call failed", service)
	}
	return appErr.WithMetadata("service", service)
}

// ExtractText performs OCR on an encoded image
func (c *Client) ExtractText(ctx context.Context, imageData []byte, format string) (string, error) {
	resp, err := call(ctx, c, ServiceOCR, c.cfg.CallTimeout, apperrors.OCRExtractFailed, func(ctx context.Context) (*pb.OCRResponse, error) {
		return c.OCR.ExtractText(ctx, &pb.OCRRequest{ImageData: imageData, Format: format})
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Identify returns the BCP-47 tag of text's language, "und" when undetermined.
func (c *Client) Identify(ctx context.Context, text string) (string, error) {
	resp, err := call(ctx, c, ServiceLanguage, c.cfg.CallTimeout, apperrors.LanguageIDFailed, func(ctx context.Context) (*pb.IdentifyLanguageResponse, error) {
		return c.Language.IdentifyLanguage(ctx, &pb.IdentifyLanguageRequest{Text: text})
	})
	if err != nil {
		return "", err
	}
	if resp.LanguageTag == "" {
		return lang.Undetermined, nil
	}
	return resp.LanguageTag, nil
}

// NewTranslator opens a server-side translator for source->target.
func (c *Client) NewTranslator(ctx context.Context, source, target string) (translate.Translator, error) {
	resp, err := call(ctx, c, ServiceTranslation, c.cfg.CallTimeout, apperrors.ModelLoadFailed, func(ctx context.Context) (*pb.OpenTranslatorResponse, error) {
		return c.Translation.OpenTranslator(ctx, &pb.OpenTranslatorRequest{SourceLanguage: source, TargetLanguage: target})
	})
	if err != nil {
		return nil, err
	}
	if resp.TranslatorID == "" {
		return nil, apperrors.Newf(apperrors.ModelLoadFailed, "server returned no translator for %s", translate.Key(source, target))
	}
	return &remoteTranslator{c: c, id: resp.TranslatorID, pair: translate.Key(source, target)}, nil
}

// DownloadModel asks the server to fetch the source->target model.
// Not guarded by a breaker; startup prefetch retries it instead.
func (c *Client) DownloadModel(ctx context.Context, source, target string) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.DownloadTimeout)
	defer cancel()

	resp, err := c.Translation.DownloadModel(ctx, &pb.DownloadModelRequest{
		SourceLanguage: source,
		TargetLanguage: target,
		RequireWifi:    c.cfg.RequireWifi,
	})
	if err != nil {
		appErr := apperrors.FromGRPCError(err)
		if appErr.Code == apperrors.Unknown || appErr.Code == apperrors.Internal {
			appErr = apperrors.Wrapf(err, apperrors.ModelLoadFailed, "download %s", translate.Key(source, target))
		}
		return appErr
	}
	trace.Logger(ctx).Debug("model ready", "pair", translate.Key(source, target), "already_present", resp.AlreadyPresent)
	return nil
}

// remoteTranslator is a handle to a server-side translator.
type remoteTranslator struct {
	c    *Client
	id   string
	pair string
}

func (t *remoteTranslator) Translate(ctx context.Context, text string) (string, error) {
	resp, err := call(ctx, t.c, ServiceTranslation, t.c.cfg.CallTimeout, apperrors.TranslationFailed, func(ctx context.Context) (*pb.TranslateResponse, error) {
		return t.c.Translation.Translate(ctx, &pb.TranslateRequest{TranslatorID: t.id, Text: text})
	})
	if err != nil {
		return "", err
	}
	return resp.TranslatedText, nil
}

func (t *remoteTranslator) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), CloseTimeout)
	defer cancel()
	_, err := t.c.Translation.CloseTranslator(ctx, &pb.CloseTranslatorRequest{TranslatorID: t.id})
	if err != nil {
		return apperrors.FromGRPCError(err).WithMetadata("pair", t.pair)
	}
	return nil
}
