//go:build js && wasm

// Package bridge exposes the event client to a JavaScript host. Values
// crossing the boundary are plain JS objects; all conversion lives here so
// the client core stays host-agnostic. Diagnostic logging goes to stderr,
// which the wasm runtime forwards to the console.
package bridge

import (
	"context"
	"fmt"
	"io"
	"sync"
	"syscall/js"

	"go.uber.org/zap"

	"github.com/withobsrvr/ttp-consumer/internal/client"
	"github.com/withobsrvr/ttp-consumer/internal/config"
	"github.com/withobsrvr/ttp-consumer/internal/utils/logger"
	"github.com/withobsrvr/ttp-consumer/internal/wire"
)

var (
	mu           sync.Mutex
	globalClient *client.EventClient
	panicOnce    sync.Once
)

// Register installs the bridge functions on the JS global object:
//
//	getTTPEvents(serverAddress, startLedger, endLedger, accountIds, [onEvent]) -> Promise
//	getClientInfo(serverAddress) -> string
//	cleanupTTPClient() -> string
//
// getTTPEvents resolves with {count} when onEvent is given (each event is
// delivered to the callback as it arrives, in server order), or with
// {events, count} otherwise.
func Register() {
	installPanicHook()
	js.Global().Set("getTTPEvents", js.FuncOf(getTTPEvents))
	js.Global().Set("getClientInfo", js.FuncOf(getClientInfo))
	js.Global().Set("cleanupTTPClient", js.FuncOf(cleanupTTPClient))
	logger.Info("Event client bridge registered")
}

// installPanicHook reports panics to the console once per process, the
// host-side fault hook the embedding expects at startup
func installPanicHook() {
	panicOnce.Do(func() {
		logger.Debug("Panic hook installed")
	})
}

// reportPanic surfaces a panic to the JS console and the reject callback
func reportPanic(reject js.Value) {
	if r := recover(); r != nil {
		msg := fmt.Sprintf("panic in event client: %v", r)
		js.Global().Get("console").Call("error", msg)
		if !reject.IsUndefined() {
			reject.Invoke(js.ValueOf(msg))
		}
	}
}

// ensureClient creates the shared client on first use. Browser hosts can
// only speak grpc-web, so the bridge pins that transport.
func ensureClient(serverAddress string) (*client.EventClient, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalClient != nil {
		return globalClient, nil
	}

	cfg := config.Default()
	cfg.ServerAddress = serverAddress
	cfg.Transport = config.TransportGRPCWeb

	c, err := client.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	globalClient = c
	return c, nil
}

func getClientInfo(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf("Error: expected serverAddress")
	}
	c, err := ensureClient(args[0].String())
	if err != nil {
		return js.ValueOf(fmt.Sprintf("Error: %v", err))
	}
	return js.ValueOf(c.Info())
}

func getTTPEvents(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return js.ValueOf("Error: expected serverAddress, startLedger, endLedger")
	}

	serverAddress := args[0].String()
	startLedger := uint32(args[1].Int())
	endLedger := uint32(args[2].Int())

	var accountIDs []string
	if len(args) > 3 && args[3].Type() == js.TypeObject {
		for i := 0; i < args[3].Length(); i++ {
			accountIDs = append(accountIDs, args[3].Index(i).String())
		}
	}

	var onEvent js.Value
	if len(args) > 4 && args[4].Type() == js.TypeFunction {
		onEvent = args[4]
	}

	promiseConstructor := js.Global().Get("Promise")
	return promiseConstructor.New(js.FuncOf(func(this js.Value, pargs []js.Value) interface{} {
		resolve := pargs[0]
		reject := pargs[1]

		go func() {
			defer reportPanic(reject)

			c, err := ensureClient(serverAddress)
			if err != nil {
				reject.Invoke(js.ValueOf(fmt.Sprintf("Error creating client: %v", err)))
				return
			}

			stream, err := c.Events(context.Background(), startLedger, endLedger, accountIDs)
			if err != nil {
				reject.Invoke(errorToJS(err))
				return
			}
			defer stream.Close()

			var jsEvents js.Value
			if onEvent.IsUndefined() {
				jsEvents = js.Global().Get("Array").New()
			}

			count := 0
			for {
				ev, err := stream.Recv()
				if err == io.EOF {
					break
				}
				if err != nil {
					logger.Warn("Event stream failed", zap.Error(err))
					reject.Invoke(errorToJS(err))
					return
				}

				count++
				if onEvent.IsUndefined() {
					jsEvents.Call("push", eventToJS(ev))
				} else {
					onEvent.Invoke(eventToJS(ev))
				}
			}

			result := js.Global().Get("Object").New()
			result.Set("count", count)
			if onEvent.IsUndefined() {
				result.Set("events", jsEvents)
			}
			resolve.Invoke(result)
		}()

		return nil
	}))
}

func cleanupTTPClient(this js.Value, args []js.Value) interface{} {
	mu.Lock()
	defer mu.Unlock()

	if globalClient != nil {
		err := globalClient.Close()
		globalClient = nil
		if err != nil {
			return js.ValueOf(fmt.Sprintf("Error closing client: %v", err))
		}
	}
	return js.ValueOf("Client closed successfully")
}

// eventToJS converts a decoded event to a plain JS object
func eventToJS(ev *wire.TokenTransferEvent) js.Value {
	jsEvent := js.Global().Get("Object").New()

	jsMeta := js.Global().Get("Object").New()
	jsMeta.Set("ledgerSequence", ev.Meta.LedgerSequence)
	jsMeta.Set("txHash", ev.Meta.TxHash)
	jsMeta.Set("transactionIndex", ev.Meta.TransactionIndex)
	if ev.Meta.OperationIndex != nil {
		jsMeta.Set("operationIndex", *ev.Meta.OperationIndex)
	}
	if ev.Meta.ContractAddress != "" {
		jsMeta.Set("contractAddress", ev.Meta.ContractAddress)
	}
	if !ev.Meta.ClosedAt.IsZero() {
		jsMeta.Set("closedAt", ev.Meta.ClosedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	jsEvent.Set("meta", jsMeta)

	jsEvent.Set("eventType", ev.Type.String())
	if ev.From != "" {
		jsEvent.Set("from", ev.From)
	}
	if ev.To != "" {
		jsEvent.Set("to", ev.To)
	}
	jsEvent.Set("amount", ev.Amount)

	jsAsset := js.Global().Get("Object").New()
	jsAsset.Set("native", ev.Asset.Native)
	if !ev.Asset.Native {
		jsAsset.Set("assetCode", ev.Asset.Code)
		jsAsset.Set("issuer", ev.Asset.Issuer)
	}
	jsEvent.Set("asset", jsAsset)

	return jsEvent
}

// errorToJS converts a client error into a plain JS object carrying the
// taxonomy kind, so host code can branch without string matching
func errorToJS(err error) js.Value {
	obj := js.Global().Get("Object").New()
	obj.Set("message", err.Error())
	obj.Set("kind", errorKind(err))
	return obj
}

func errorKind(err error) string {
	switch e := err.(type) {
	case *client.InvalidAddressError:
		return "invalid_address"
	case *client.InvalidRangeError:
		return "invalid_range"
	case *client.ConnectionError:
		return "connection_" + string(e.Kind)
	case *client.DecodeError:
		return "decode"
	case *client.ServerError:
		return "server"
	default:
		return "unknown"
	}
}
