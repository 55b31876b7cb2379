package telephony

import "go.opentelemetry.io/otel"

const scopeName = "outbound-calls/internal/telephony"

var tracer = otel.Tracer(scopeName)
