/*
Package exposer serves the Fields of a nested model as HTTP endpoints.

A model is any struct graph whose leaves are *field.Field values. The engine
walks the graph once at registration, synthesizes one endpoint per exposed
Field plus one endpoint for the whole model, and binds them to a chi router.
Nothing is generated ahead of time: the routes follow the Go declaration.

# Concept

Fields carry a value, a lock and their listeners. Exposition is opt-in and
attached to the Field itself (field.Expose) or to the struct member
(`expose:"name"`). Values cross the wire through serializers looked up by
the exact declared type in a codec.Registry, so a Field[time.Duration] and a
Field[int64] never share a conversion.

# Endpoints

For a model registered as "device":

  - GET  /device/count            reads the field
  - GET  /device/count?value=5    assigns, then reads the fresh value
  - POST /device/count            assigns a structured body, then reads
  - GET  /device                  serializes every field of the model
  - POST /device                  applies a partial update, continuing past bad keys
  - GET  /device/_events          streams changes as Server-Sent Events

# Usage

	package main

	import (
		"context"
		"log"
		"os/signal"
		"syscall"

		"github.com/aretw0/exposer"
		"github.com/aretw0/exposer/pkg/field"
	)

	type Device struct {
		Count *field.Field[int]
		Label *field.Field[string]
	}

	func main() {
		dev := &Device{
			Count: field.New(0, field.Expose()),
			Label: field.New("lamp", field.Expose("name")),
		}

		eng := exposer.New(nil, exposer.WithAddr(":8080"))
		if err := eng.Register("device", dev); err != nil {
			log.Fatal(err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if err := eng.Run(ctx); err != nil {
			log.Fatal(err)
		}
	}

# Extending

Custom value types need a serializer registered before serving starts:

	reg := codec.Default()
	codec.Register(reg, codec.Enum[Mode]("off", "heat", "cool"))
	eng := exposer.New(reg)

Changes can be fanned out beyond the process with WithPublisher, for example
to the Redis broker in pkg/adapters/redis.
*/
package exposer
