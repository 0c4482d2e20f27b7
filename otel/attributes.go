package otel

import "go.opentelemetry.io/otel/attribute"

func containerAttr(name string) attribute.KeyValue {
	return attribute.String("container", name)
}

func directionAttr(direction string) attribute.KeyValue {
	return attribute.String("direction", direction)
}
