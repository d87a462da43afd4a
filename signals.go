package model

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for model events.
var (
	SignalFillComplete      = capitan.NewSignal("model.fill.complete", "Mass assignment finished")
	SignalCasterResolved    = capitan.NewSignal("model.caster.resolved", "Cast specifier resolved to a caster")
	SignalSerializeComplete = capitan.NewSignal("model.serialize.complete", "View projection finished")
)

// Signals for processor events.
var (
	SignalProcessorCreated = capitan.NewSignal("model.processor.created", "Processor instantiated")
	SignalReceiveStart     = capitan.NewSignal("model.receive.start", "Receive operation beginning")
	SignalReceiveComplete  = capitan.NewSignal("model.receive.complete", "Receive operation finished")
	SignalLoadStart        = capitan.NewSignal("model.load.start", "Load operation beginning")
	SignalLoadComplete     = capitan.NewSignal("model.load.complete", "Load operation finished")
	SignalStoreStart       = capitan.NewSignal("model.store.start", "Store operation beginning")
	SignalStoreComplete    = capitan.NewSignal("model.store.complete", "Store operation finished")
	SignalSendStart        = capitan.NewSignal("model.send.start", "Send operation beginning")
	SignalSendComplete     = capitan.NewSignal("model.send.complete", "Send operation finished")
)

// Keys for typed event data.
var (
	KeyModel          = capitan.NewStringKey("model")
	KeyCast           = capitan.NewStringKey("cast")
	KeyCastKind       = capitan.NewStringKey("cast_kind")
	KeyView           = capitan.NewStringKey("view")
	KeyContentType    = capitan.NewStringKey("content_type")
	KeyTypeName       = capitan.NewStringKey("type_name")
	KeySize           = capitan.NewIntKey("size")
	KeyFieldCount     = capitan.NewIntKey("field_count")
	KeyFilledCount    = capitan.NewIntKey("filled_count")
	KeyDiscardedCount = capitan.NewIntKey("discarded_count")
	KeyMaskedCount    = capitan.NewIntKey("masked_count")
	KeyRedactedCount  = capitan.NewIntKey("redacted_count")
	KeyDuration       = capitan.NewDurationKey("duration")
	KeyError          = capitan.NewErrorKey("error")
)

// emitFillComplete emits an event when Fill finishes.
func emitFillComplete(ctx context.Context, model string, filled, discarded int, err error) {
	fields := []capitan.Field{
		KeyModel.Field(model),
		KeyFilledCount.Field(filled),
		KeyDiscardedCount.Field(discarded),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalFillComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalFillComplete, fields...)
	}
}

// emitCastResolved emits an event when a specifier first resolves to an
// enum or caster.
func emitCastResolved(ctx context.Context, spec string, kind castKind) {
	capitan.Emit(ctx, SignalCasterResolved,
		KeyCast.Field(spec),
		KeyCastKind.Field(kind.String()),
	)
}

// emitSerializeComplete emits an event when a view has been built.
func emitSerializeComplete(ctx context.Context, model, view string, fieldCount int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyModel.Field(model),
		KeyView.Field(view),
		KeyFieldCount.Field(fieldCount),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalSerializeComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalSerializeComplete, fields...)
	}
}

// emitProcessorCreated emits an event when a processor is created.
func emitProcessorCreated(ctx context.Context, contentType, typeName string) {
	capitan.Emit(ctx, SignalProcessorCreated,
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
	)
}

// emitReceiveStart emits an event when receive begins.
func emitReceiveStart(ctx context.Context, contentType, typeName string) {
	capitan.Emit(ctx, SignalReceiveStart,
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
	)
}

// emitReceiveComplete emits an event when receive finishes.
func emitReceiveComplete(ctx context.Context, contentType, typeName string, size int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
		KeySize.Field(size),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalReceiveComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalReceiveComplete, fields...)
	}
}

// emitLoadStart emits an event when load begins.
func emitLoadStart(ctx context.Context, contentType, typeName string) {
	capitan.Emit(ctx, SignalLoadStart,
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
	)
}

// emitLoadComplete emits an event when load finishes.
func emitLoadComplete(ctx context.Context, contentType, typeName string, size int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
		KeySize.Field(size),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalLoadComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalLoadComplete, fields...)
	}
}

// emitStoreStart emits an event when store begins.
func emitStoreStart(ctx context.Context, contentType, typeName string) {
	capitan.Emit(ctx, SignalStoreStart,
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
	)
}

// emitStoreComplete emits an event when store finishes.
func emitStoreComplete(ctx context.Context, contentType, typeName string, size int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
		KeySize.Field(size),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalStoreComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalStoreComplete, fields...)
	}
}

// emitSendStart emits an event when send begins.
func emitSendStart(ctx context.Context, contentType, typeName string) {
	capitan.Emit(ctx, SignalSendStart,
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
	)
}

// emitSendComplete emits an event when send finishes.
func emitSendComplete(ctx context.Context, contentType, typeName string, size int, duration time.Duration, masked, redacted int, err error) {
	fields := []capitan.Field{
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
		KeySize.Field(size),
		KeyDuration.Field(duration),
		KeyMaskedCount.Field(masked),
		KeyRedactedCount.Field(redacted),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalSendComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalSendComplete, fields...)
	}
}
