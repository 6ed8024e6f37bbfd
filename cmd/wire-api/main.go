// Package main provides the HTTP inspection server for conference packets
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZentaChain/zentalk-wire/pkg/api"
	"github.com/ZentaChain/zentalk-wire/pkg/protocol"
	"github.com/ZentaChain/zentalk-wire/pkg/storage"
)

func main() {
	defaults := api.DefaultConfig()

	port := flag.Int("port", defaults.Port, "HTTP API port")
	enableCORS := flag.Bool("cors", defaults.EnableCORS, "Enable CORS headers")
	rateLimit := flag.Int("rate-limit", defaults.RateLimit, "Rate limit (requests per minute, 0 disables)")
	maxBodyKB := flag.Int("max-body", defaults.MaxBodyKB, "Maximum request body size in KB")
	readTimeout := flag.Duration("read-timeout", defaults.ReadTimeout, "HTTP read timeout")
	writeTimeout := flag.Duration("write-timeout", defaults.WriteTimeout, "HTTP write timeout")
	captureDB := flag.String("capture", "", "SQLite capture database to browse (disabled when empty)")
	captureTTL := flag.Duration("capture-ttl", 24*time.Hour, "How long captured frames are kept")

	flag.Parse()

	fmt.Println("🚀 ZenTalk Wire Inspection API")
	fmt.Println("==============================")
	fmt.Println()

	fmt.Println("Known packet kinds:")
	for _, kind := range protocol.Kinds() {
		fmt.Printf("  0x%02x/0x%02x  %s\n", kind.PacketID(), kind.Tag(), kind)
	}
	fmt.Println()

	var capture *storage.CaptureStore
	if *captureDB != "" {
		var err error
		capture, err = storage.NewCaptureStore(*captureDB, *captureTTL)
		if err != nil {
			log.Fatalf("Failed to open capture store: %v", err)
		}
		defer capture.Close()
		fmt.Printf("📼 Capture store: %s\n", *captureDB)
		fmt.Println()
	}

	server := api.NewServer(capture, &api.Config{
		Port:         *port,
		EnableCORS:   *enableCORS,
		RateLimit:    *rateLimit,
		MaxBodyKB:    *maxBodyKB,
		ReadTimeout:  *readTimeout,
		WriteTimeout: *writeTimeout,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- server.Start(ctx)
	}()

	fmt.Println("API Endpoints:")
	fmt.Printf("  GET    http://localhost:%d/health\n", *port)
	fmt.Printf("  GET    http://localhost:%d/api/v1/packets/kinds\n", *port)
	fmt.Printf("  POST   http://localhost:%d/api/v1/packets/decode\n", *port)
	fmt.Printf("  POST   http://localhost:%d/api/v1/packets/new-peer\n", *port)
	fmt.Printf("  POST   http://localhost:%d/api/v1/packets/message\n", *port)
	if capture != nil {
		fmt.Printf("  GET    http://localhost:%d/api/v1/captures\n", *port)
		fmt.Printf("  GET    http://localhost:%d/api/v1/captures/stats\n", *port)
		fmt.Printf("  GET    http://localhost:%d/api/v1/captures/:id\n", *port)
	}
	fmt.Println()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		fmt.Println("\n🛑 Shutting down...")
		cancel()
		select {
		case err := <-done:
			if err != nil {
				log.Printf("Shutdown error: %v", err)
			}
		case <-time.After(15 * time.Second):
			log.Println("Shutdown timed out")
		}
	case err := <-done:
		if err != nil {
			log.Fatalf("API server error: %v", err)
		}
	}

	fmt.Println("👋 Goodbye!")
}
