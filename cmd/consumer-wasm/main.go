//go:build js && wasm

// consumer-wasm is the browser build of the event consumer. Compile with:
//
//	GOOS=js GOARCH=wasm go build -o consumer.wasm ./cmd/consumer-wasm
//
// and load it next to wasm_exec.js. The bridge functions appear on the JS
// global object once the module is running.
package main

import (
	"github.com/withobsrvr/ttp-consumer/internal/bridge"
	"github.com/withobsrvr/ttp-consumer/internal/utils/logger"
)

func main() {
	if err := logger.Init("info"); err != nil {
		panic(err)
	}

	bridge.Register()

	// Keep the program alive; all work happens in bridge callbacks
	select {}
}
