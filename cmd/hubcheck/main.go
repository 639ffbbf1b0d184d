package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dawikk/hubbridge/internal/bridgeclient"
	"github.com/dawikk/hubbridge/pkg/hubdto"
)

func main() {
	baseURL := os.Getenv("BRIDGE_BASE_URL")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8480"
	}

	client := bridgeclient.NewClient(baseURL, bridgeclient.WithTimeout(8*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Healthy(ctx); err != nil {
		log.Fatalf("/healthz error: %v", err)
	}
	log.Println("/healthz ok")

	status, err := client.Status(ctx)
	if err != nil {
		log.Fatalf("/status error: %v", err)
	}
	engineName := "unknown"
	if status.Engine != nil {
		engineName = status.Engine.Name + " " + status.Engine.Version
	}
	log.Printf("/status ok: state=%s engine=%s book=%v bitbase=%v",
		status.Status, engineName, status.Book, status.Bitbase)

	if os.Getenv("BRIDGE_SKIP_WS") != "" {
		return
	}

	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/ws"
	es := bridgeclient.NewEventStream(wsURL, func(msg hubdto.EventMessage) {
		log.Printf("WS event kind=%s line=%q", msg.Kind, msg.Line)
	}, 3)

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := es.Connect(cctx); err != nil {
		log.Fatalf("WS connect error: %v", err)
	}

	// Nudge the engine so the stream has something to show.
	if _, err := client.Submit(context.Background(), "ping"); err != nil {
		log.Printf("submit error: %v", err)
	}

	// Observe for a short window
	t := time.NewTimer(5 * time.Second)
	<-t.C

	_ = es.Close(context.Background())
}
