package protomatch

import (
	"github.com/drblury/protomatch/internal/filter/attr"
	"github.com/drblury/protomatch/internal/filter/eval"
	"github.com/drblury/protomatch/internal/filter/predicate"
	"github.com/drblury/protomatch/internal/filter/schema"
	"github.com/drblury/protomatch/internal/filter/wire"
	idspkg "github.com/drblury/protomatch/internal/ids"
	runtimepkg "github.com/drblury/protomatch/internal/runtime"
	configpkg "github.com/drblury/protomatch/internal/runtime/config"
	errspkg "github.com/drblury/protomatch/internal/runtime/errors"
	loggingpkg "github.com/drblury/protomatch/internal/runtime/logging"
	metadatapkg "github.com/drblury/protomatch/internal/runtime/metadata"
	transportpkg "github.com/drblury/protomatch/internal/runtime/transport"
)

type (
	// Evaluation core
	Registry                     = schema.Registry
	FilesRegistry                = schema.FilesRegistry
	Tree                         = attr.Tree
	TreeBuilder                  = attr.Builder
	Listener                     = attr.Listener
	ListenerFunc                 = attr.ListenerFunc
	Value                        = attr.Value
	ValueKind                    = attr.Kind
	Context                      = eval.Context
	ContextOption                = eval.Option
	State                        = eval.State
	Decoder                      = wire.Decoder
	DecoderEvent                 = wire.Event
	DecoderHandler               = wire.Handler
	EventKind                    = wire.EventKind
	ProtocolSequenceError        = eval.ProtocolSequenceError
	UnexpectedEnvelopeFieldError = eval.UnexpectedEnvelopeFieldError
	DecodeIOError                = eval.DecodeIOError
	UnknownEntityTypeError       = eval.UnknownEntityTypeError

	// Predicates
	Filter         = predicate.Filter
	Condition      = predicate.Condition
	ConditionError = predicate.ConditionError
	FilterSet      = predicate.Set
	SetOption      = predicate.SetOption
	Match          = predicate.Match
	Compiler       = predicate.Compiler

	// Service
	Config                  = configpkg.Config
	Service                 = runtimepkg.Service
	ServiceDependencies     = runtimepkg.ServiceDependencies
	MatcherRegistration     = runtimepkg.MatcherRegistration
	MatcherInfo             = runtimepkg.MatcherInfo
	MatcherMetrics          = runtimepkg.MatcherMetrics
	Notification            = runtimepkg.Notification
	Transport               = transportpkg.Transport
	TransportFactory        = transportpkg.Factory
	MiddlewareBuilder       = runtimepkg.MiddlewareBuilder
	MiddlewareRegistration  = runtimepkg.MiddlewareRegistration
	RetryMiddlewareConfig   = runtimepkg.RetryMiddlewareConfig
	UnprocessableEventError = runtimepkg.UnprocessableEventError
	ConfigValidationError   = errspkg.ConfigValidationError

	Metadata = metadatapkg.Metadata

	LogFields                 = loggingpkg.LogFields
	ServiceLogger             = loggingpkg.ServiceLogger
	EntryLoggerAdapter[T any] = loggingpkg.EntryLoggerAdapter[T]
)

// Value kinds delivered to listeners.
const (
	KindSet     = attr.KindSet
	KindDefault = attr.KindDefault
	KindAbsent  = attr.KindAbsent
	KindNull    = attr.KindNull
	KindPresent = attr.KindPresent
)

// Evaluation states.
const (
	StateInit     = eval.StateInit
	StateEnvelope = eval.StateEnvelope
	StatePayload  = eval.StatePayload
	StateDone     = eval.StateDone
)

// Transports accepted by Config.Transport.
const (
	TransportChannel  = configpkg.TransportChannel
	TransportNATS     = configpkg.TransportNATS
	TransportKafka    = configpkg.TransportKafka
	TransportRabbitMQ = configpkg.TransportRabbitMQ
)

// Notification metadata keys.
const (
	MetadataKeyFilterID   = metadatapkg.KeyFilterID
	MetadataKeyEntityType = metadatapkg.KeyEntityType
	MetadataKeySourceUUID = metadatapkg.KeySourceUUID
	MetadataKeyHandler    = metadatapkg.KeyHandler
)

var (
	NewRegistry        = schema.NewFilesRegistry
	NewRegistryFromSet = schema.NewRegistryFromSet
	GlobalRegistry     = schema.GlobalRegistry
	ResolvePath        = schema.ResolvePath
	Wrap               = schema.Wrap
	EnvelopeDescriptor = schema.Envelope

	NewTreeBuilder = attr.NewBuilder
	NewContext     = eval.New
	WithDecoder    = eval.WithDecoder

	NewFilterSet        = predicate.NewSet
	NewCompiler         = predicate.NewCompiler
	WithRecursionLimit  = predicate.WithRecursionLimit
	WithCompiler        = predicate.WithCompiler
	LoadFiltersYAML     = predicate.LoadYAML
	LoadFiltersYAMLFile = predicate.LoadYAMLFile

	NewService              = runtimepkg.NewService
	TryNewService           = runtimepkg.TryNewService
	NewServiceFilterSet     = runtimepkg.NewFilterSet
	RegisterMatcher         = runtimepkg.RegisterMatcher
	NewMatcherMetrics       = runtimepkg.NewMatcherMetrics
	NewEventMessage         = runtimepkg.NewEventMessage
	PublishEvent            = runtimepkg.PublishEvent
	DecodeNotification      = runtimepkg.DecodeNotification
	IsUnprocessable         = runtimepkg.IsUnprocessable
	DefaultTransportFactory = transportpkg.DefaultFactory

	DefaultMiddlewares      = runtimepkg.DefaultMiddlewares
	CorrelationIDMiddleware = runtimepkg.CorrelationIDMiddleware
	LogMessagesMiddleware   = runtimepkg.LogMessagesMiddleware
	TracerMiddleware        = runtimepkg.TracerMiddleware
	MetricsMiddleware       = runtimepkg.MetricsMiddleware
	RetryMiddleware         = runtimepkg.RetryMiddleware
	PoisonQueueMiddleware   = runtimepkg.PoisonQueueMiddleware
	RecovererMiddleware     = runtimepkg.RecovererMiddleware

	ErrEnvelopeMissingType  = eval.ErrEnvelopeMissingType
	ErrEntityTypeRequired   = predicate.ErrEntityTypeRequired
	ErrFilterNotFound       = predicate.ErrFilterNotFound
	ErrDuplicateFilter      = predicate.ErrDuplicateFilter
	ErrEmptyExpression      = predicate.ErrEmptyExpression
	ErrNotBoolean           = predicate.ErrNotBoolean
	ErrServiceRequired      = errspkg.ErrServiceRequired
	ErrRegistryRequired     = errspkg.ErrRegistryRequired
	ErrFilterSetRequired    = errspkg.ErrFilterSetRequired
	ErrConsumeQueueRequired = errspkg.ErrConsumeQueueRequired
	ErrPublishQueueRequired = errspkg.ErrPublishQueueRequired
	ErrHandlerNameRequired  = errspkg.ErrHandlerNameRequired
	ErrConfigRequired       = errspkg.ErrConfigRequired
	ErrLoggerRequired       = errspkg.ErrLoggerRequired
	ErrPublisherRequired    = errspkg.ErrPublisherRequired
	ErrTopicRequired        = errspkg.ErrTopicRequired
	ErrEventRequired        = errspkg.ErrEventRequired

	NewSlogServiceLogger      = loggingpkg.NewSlogServiceLogger
	NewWatermillServiceLogger = loggingpkg.NewWatermillServiceLogger
	NewNopServiceLogger       = loggingpkg.NewNopServiceLogger

	NewID = idspkg.New
)

// Of wraps a decoded field value.
func Of(v any) Value { return attr.Of(v) }

func NewEntryServiceLogger[T EntryLoggerAdapter[T]](entry T) ServiceLogger {
	return loggingpkg.NewEntryServiceLogger(entry)
}
