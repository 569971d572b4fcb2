package exposer

// Version is the release of the engine. Builds may override it with
// -ldflags "-X github.com/aretw0/exposer.Version=...".
var Version = "0.3.0"
