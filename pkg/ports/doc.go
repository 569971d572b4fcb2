/*
Package ports defines the driven ports (interfaces) of the exposition engine.

These interfaces decouple the engine from the infrastructure that carries
change notifications, so the same engine can fan changes out in-process or
across instances.

# Key Interfaces

  - ChangePublisher: Receives every change of an exposed Field.
  - ChangeSubscriber: Delivers the changes of one model to a consumer (e.g. an SSE stream).
*/
package ports
