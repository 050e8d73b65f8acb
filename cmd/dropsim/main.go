// Command dropsim walks a simulated user to a bin and confirms a drop
// against a running server.
//
//	dropsim -server http://localhost:8080 -email user@ecodrop.app -password recycle123 -bin <id>
package main

import (
	"context"
	"flag"
	"log"
	"math"
	"os"
	"os/signal"
	"time"

	"ecodrop-backend/internal/destination"
	"ecodrop-backend/internal/dropflow"
	"ecodrop-backend/internal/geo"
	"ecodrop-backend/internal/tracker"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "API base URL")
	token := flag.String("token", "", "bearer token")
	email := flag.String("email", "", "log in with this email when no token is given")
	password := flag.String("password", "", "password for -email")
	userID := flag.String("user", "", "send X-User-ID instead of a token")
	binID := flag.String("bin", "", "bin to walk to")
	start := flag.Float64("start", 400, "starting distance from the bin in meters")
	speed := flag.Float64("speed", 40, "walking speed in meters per tick")
	tick := flag.Duration("tick", time.Second, "interval between GPS fixes")
	jitter := flag.Float64("jitter", 3, "GPS noise in meters")
	stateDir := flag.String("state", os.TempDir(), "directory for the local destination file")
	flag.Parse()

	if *binID == "" {
		log.Fatal("❌ -bin is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := []dropflow.ClientOption{}
	switch {
	case *token != "":
		opts = append(opts, dropflow.WithToken(*token))
	case *email != "":
		t, err := dropflow.Login(ctx, *server, *email, *password)
		if err != nil {
			log.Fatalf("❌ Login failed: %v", err)
		}
		opts = append(opts, dropflow.WithToken(t))
	case *userID != "":
		opts = append(opts, dropflow.WithUserID(*userID))
	}
	client := dropflow.NewClient(*server, opts...)

	bin, err := client.GetBin(ctx, *binID)
	if err != nil {
		log.Fatalf("❌ Failed to load bin: %v", err)
	}
	log.Printf("🗑️  Target: %s (%s), status %s", bin.Name, bin.Address, bin.Status)

	store := destination.NewStore(destination.NewFileStorage(*stateDir))
	flow := dropflow.NewFlow(client, store, tracker.DefaultConfig())

	if _, err := flow.ActivateDestination(ctx, *bin); err != nil {
		log.Fatalf("❌ Failed to activate destination: %v", err)
	}

	src := tracker.NewChannelSource(1)
	eligible := make(chan struct{}, 1)
	err = flow.Track(ctx, src, tracker.Handlers{
		OnUpdate: func(s tracker.State) {
			if s.Distance != nil {
				log.Printf("📍 %s: %.0fm away, %ds in radius", s.Phase, *s.Distance, s.DwellSeconds)
			}
		},
		OnEligible: func(tracker.State) {
			select {
			case eligible <- struct{}{}:
			default:
			}
		},
		OnError: func(err error) { log.Printf("⚠️  %v", err) },
	})
	if err != nil {
		log.Fatalf("❌ Failed to start tracking: %v", err)
	}
	defer flow.Cancel(context.Background())

	ticker := time.NewTicker(*tick)
	defer ticker.Stop()

	remaining := *start
	step := 0
walk:
	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 Interrupted")
			return
		case <-eligible:
			break walk
		case <-ticker.C:
			remaining = math.Max(0, remaining-*speed)
			step++
			// wobble around the remaining distance like a real fix would
			noise := *jitter * math.Sin(float64(step))
			lat, lng := geo.Offset(bin.Latitude, bin.Longitude, noise, remaining+noise)
			if err := src.Push(ctx, tracker.Position{Latitude: lat, Longitude: lng, Timestamp: time.Now()}); err != nil {
				return
			}
		}
	}

	resp, err := flow.ConfirmDrop(ctx)
	if err != nil {
		log.Fatalf("❌ Verification failed: %v", err)
	}
	log.Printf("🎉 Drop %s confirmed at %s: +%d points, %s CO₂, %s energy",
		resp.DropEventID, resp.BinName, resp.PointsEarned, resp.Impact.CO2Saved, resp.Impact.EnergySaved)
}
