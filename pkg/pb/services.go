package pb

import (
	"context"

	"google.golang.org/grpc"
)

// Full method names.
const (
	OCRService_ExtractText_FullMethodName             = "/inference.OCRService/ExtractText"
	LanguageService_IdentifyLanguage_FullMethodName   = "/inference.LanguageService/IdentifyLanguage"
	TranslationService_OpenTranslator_FullMethodName  = "/inference.TranslationService/OpenTranslator"
	TranslationService_Translate_FullMethodName       = "/inference.TranslationService/Translate"
	TranslationService_CloseTranslator_FullMethodName = "/inference.TranslationService/CloseTranslator"
	TranslationService_DownloadModel_FullMethodName   = "/inference.TranslationService/DownloadModel"
)

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func invoke[Req, Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in *Req, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, method, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// unary adapts a typed server method to a grpc.MethodHandler.
func unary[S, Req, Resp any](fullMethod string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(S), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(S), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// OCRServiceClient extracts text from images.
type OCRServiceClient interface {
	ExtractText(ctx context.Context, in *OCRRequest, opts ...grpc.CallOption) (*OCRResponse, error)
}

type ocrServiceClient struct{ cc grpc.ClientConnInterface }

// NewOCRServiceClient creates an OCR client on cc.
func NewOCRServiceClient(cc grpc.ClientConnInterface) OCRServiceClient {
	return &ocrServiceClient{cc}
}

func (c *ocrServiceClient) ExtractText(ctx context.Context, in *OCRRequest, opts ...grpc.CallOption) (*OCRResponse, error) {
	return invoke[OCRRequest, OCRResponse](ctx, c.cc, OCRService_ExtractText_FullMethodName, in, opts)
}

// OCRServiceServer is implemented by inference servers.
type OCRServiceServer interface {
	ExtractText(context.Context, *OCRRequest) (*OCRResponse, error)
}

// OCRService_ServiceDesc describes inference.OCRService.
var OCRService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "inference.OCRService",
	HandlerType: (*OCRServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ExtractText", Handler: unary(OCRService_ExtractText_FullMethodName, OCRServiceServer.ExtractText)},
	},
	Metadata: "inference.proto",
}

// RegisterOCRServiceServer registers srv on s.
func RegisterOCRServiceServer(s grpc.ServiceRegistrar, srv OCRServiceServer) {
	s.RegisterService(&OCRService_ServiceDesc, srv)
}

// LanguageServiceClient identifies the language of text.
type LanguageServiceClient interface {
	IdentifyLanguage(ctx context.Context, in *IdentifyLanguageRequest, opts ...grpc.CallOption) (*IdentifyLanguageResponse, error)
}

type languageServiceClient struct{ cc grpc.ClientConnInterface }

// NewLanguageServiceClient creates a language identification client on cc.
func NewLanguageServiceClient(cc grpc.ClientConnInterface) LanguageServiceClient {
	return &languageServiceClient{cc}
}

func (c *languageServiceClient) IdentifyLanguage(ctx context.Context, in *IdentifyLanguageRequest, opts ...grpc.CallOption) (*IdentifyLanguageResponse, error) {
	return invoke[IdentifyLanguageRequest, IdentifyLanguageResponse](ctx, c.cc, LanguageService_IdentifyLanguage_FullMethodName, in, opts)
}

// LanguageServiceServer is implemented by inference servers.
type LanguageServiceServer interface {
	IdentifyLanguage(context.Context, *IdentifyLanguageRequest) (*IdentifyLanguageResponse, error)
}

// LanguageService_ServiceDesc describes inference.LanguageService.
var LanguageService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "inference.LanguageService",
	HandlerType: (*LanguageServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "IdentifyLanguage", Handler: unary(LanguageService_IdentifyLanguage_FullMethodName, LanguageServiceServer.IdentifyLanguage)},
	},
	Metadata: "inference.proto",
}

// RegisterLanguageServiceServer registers srv on s.
func RegisterLanguageServiceServer(s grpc.ServiceRegistrar, srv LanguageServiceServer) {
	s.RegisterService(&LanguageService_ServiceDesc, srv)
}

// TranslationServiceClient manages translator handles.
type TranslationServiceClient interface {
	OpenTranslator(ctx context.Context, in *OpenTranslatorRequest, opts ...grpc.CallOption) (*OpenTranslatorResponse, error)
	Translate(ctx context.Context, in *TranslateRequest, opts ...grpc.CallOption) (*TranslateResponse, error)
	CloseTranslator(ctx context.Context, in *CloseTranslatorRequest, opts ...grpc.CallOption) (*CloseTranslatorResponse, error)
	DownloadModel(ctx context.Context, in *DownloadModelRequest, opts ...grpc.CallOption) (*DownloadModelResponse, error)
}

type translationServiceClient struct{ cc grpc.ClientConnInterface }

// NewTranslationServiceClient creates a translation client on cc.
func NewTranslationServiceClient(cc grpc.ClientConnInterface) TranslationServiceClient {
	return &translationServiceClient{cc}
}

func (c *translationServiceClient) OpenTranslator(ctx context.Context, in *OpenTranslatorRequest, opts ...grpc.CallOption) (*OpenTranslatorResponse, error) {
	return invoke[OpenTranslatorRequest, OpenTranslatorResponse](ctx, c.cc, TranslationService_OpenTranslator_FullMethodName, in, opts)
}

func (c *translationServiceClient) Translate(ctx context.Context, in *TranslateRequest, opts ...grpc.CallOption) (*TranslateResponse, error) {
	return invoke[TranslateRequest, TranslateResponse](ctx, c.cc, TranslationService_Translate_FullMethodName, in, opts)
}

func (c *translationServiceClient) CloseTranslator(ctx context.Context, in *CloseTranslatorRequest, opts ...grpc.CallOption) (*CloseTranslatorResponse, error) {
	return invoke[CloseTranslatorRequest, CloseTranslatorResponse](ctx, c.cc, TranslationService_CloseTranslator_FullMethodName, in, opts)
}

func (c *translationServiceClient) DownloadModel(ctx context.Context, in *DownloadModelRequest, opts ...grpc.CallOption) (*DownloadModelResponse, error) {
	return invoke[DownloadModelRequest, DownloadModelResponse](ctx, c.cc, TranslationService_DownloadModel_FullMethodName, in, opts)
}

// TranslationServiceServer is implemented by inference servers.
type TranslationServiceServer interface {
	OpenTranslator(context.Context, *OpenTranslatorRequest) (*OpenTranslatorResponse, error)
	Translate(context.Context, *TranslateRequest) (*TranslateResponse, error)
	CloseTranslator(context.Context, *CloseTranslatorRequest) (*CloseTranslatorResponse, error)
	DownloadModel(context.Context, *DownloadModelRequest) (*DownloadModelResponse, error)
}

// TranslationService_ServiceDesc describes inference.TranslationService.
var TranslationService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "inference.TranslationService",
	HandlerType: (*TranslationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "OpenTranslator", Handler: unary(TranslationService_OpenTranslator_FullMethodName, TranslationServiceServer.OpenTranslator)},
		{MethodName: "Translate", Handler: unary(TranslationService_Translate_FullMethodName, TranslationServiceServer.Translate)},
		{MethodName: "CloseTranslator", Handler: unary(TranslationService_CloseTranslator_FullMethodName, TranslationServiceServer.CloseTranslator)},
		{MethodName: "DownloadModel", Handler: unary(TranslationService_DownloadModel_FullMethodName, TranslationServiceServer.DownloadModel)},
	},
	Metadata: "inference.proto",
}

// RegisterTranslationServiceServer registers srv on s.
func RegisterTranslationServiceServer(s grpc.ServiceRegistrar, srv TranslationServiceServer) {
	s.RegisterService(&TranslationService_ServiceDesc, srv)
}

