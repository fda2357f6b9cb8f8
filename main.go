// ABOUTME: Entry point for the Cuecast participant
// ABOUTME: Runs a listening player, or one-shot operator commands
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	charmlog "github.com/charmbracelet/log"
	"github.com/cuecast/cuecast-go/internal/app"
	"github.com/cuecast/cuecast-go/internal/client"
	"github.com/cuecast/cuecast-go/internal/control"
	"github.com/cuecast/cuecast-go/internal/discovery"
	"github.com/cuecast/cuecast-go/internal/dispatch"
	"github.com/cuecast/cuecast-go/internal/notify"
	"github.com/cuecast/cuecast-go/internal/playback"
	"github.com/cuecast/cuecast-go/internal/registry"
	"github.com/cuecast/cuecast-go/internal/session"
	"github.com/cuecast/cuecast-go/internal/upload"
	"github.com/cuecast/cuecast-go/internal/version"
)

// envDefaults are overridable through the environment before flags apply
type envDefaults struct {
	Server  string  `env:"CUECAST_SERVER"`
	ID      string  `env:"CUECAST_ID"`
	Persona string  `env:"CUECAST_PERSONA"`
	Volume  float64 `env:"CUECAST_VOLUME" envDefault:"0.5"`
}

const usage = `Usage: cuecast [flags] [command]

Without a command, runs as a listening participant until interrupted.

Commands (operator):
  play <entity> <asset-name>    dispatch playback to the entity's player
  stop <entity>                 stop the entity's player
  upload <entity> <file>        upload an audio file and register it
  remove <entity> <asset-name>  remove an asset from the entity's registry
  list <entity>                 list the entity's registered assets
`

func main() {
	defaults := envDefaults{}
	if err := env.Parse(&defaults); err != nil {
		log.Fatalf("error parsing environment: %v", err)
	}

	serverAddr := flag.String("server", defaults.Server, "Manual hub address host:port (skip mDNS)")
	id := flag.String("id", defaults.ID, "Participant ID (default: hostname)")
	name := flag.String("name", "", "Participant friendly name (default: hostname)")
	persona := flag.String("persona", defaults.Persona, "Entity designated as this participant's persona")
	ownership := flag.String("ownership", "", "Ownership grants as entity=level pairs, comma separated (levels 0-3)")
	volume := flag.Float64("volume", defaults.Volume, "Playback volume, 0.0 to 1.0")
	logFile := flag.String("log-file", "cuecast.log", "Log file path")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flag.PrintDefaults()
	}
	flag.Parse()

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	args := flag.Args()
	oneShot := len(args) > 0

	if oneShot {
		// Command mode: keep stdout for the notifier, logs go to file
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	participantID := *id
	if participantID == "" {
		participantID = hostname
	}
	participantName := *name
	if participantName == "" {
		participantName = hostname
	}

	grants, err := parseOwnership(*ownership)
	if err != nil {
		log.Fatalf("invalid -ownership: %v", err)
	}

	addr := *serverAddr
	if addr == "" {
		addr = discoverHub()
	}

	role := session.RolePlayer
	if oneShot {
		role = session.RoleOperator
	}

	c := client.NewClient(client.Config{
		ServerAddr:    addr,
		ParticipantID: participantID,
		Name:          participantName,
		Role:          role,
		Persona:       *persona,
		Ownership:     grants,
	})
	if err := c.Connect(); err != nil {
		log.Fatalf("Connection failed: %v", err)
	}
	defer c.Close()

	notifier := notify.NewLogNotifier(charmlog.New(os.Stderr))
	channel := dispatch.New(c, participantID)

	if oneShot {
		if err := runCommand(args, c, channel, notifier, addr, *volume, participantName); err != nil {
			log.Printf("Command failed: %v", err)
			os.Exit(1)
		}
		return
	}

	runParticipant(channel, notifier, addr, participantName)
}

// runParticipant listens for dispatch commands until interrupted
func runParticipant(channel *dispatch.Channel, notifier notify.Notifier, addr, name string) {
	acquirer := playback.NewOtoAcquirer("http://" + addr)
	controller := playback.NewController(acquirer)
	app.NewParticipant(channel, controller, notifier)

	log.Printf("%s %s listening as %s", version.Product, version.Version, name)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Printf("Shutdown signal received")

	controller.Stop()
	log.Printf("Participant stopped")
}

// runCommand executes one operator operation and exits
func runCommand(args []string, c *client.Client, channel *dispatch.Channel, notifier notify.Notifier, addr string, volume float64, operatorName string) error {
	reg := registry.New(c)
	surface := control.New(reg, c.Roster(), channel, notifier, volume)

	// The hub pushes the roster right after the handshake; give it a
	// moment to arrive before resolving recipients
	waitForRoster(c)

	switch args[0] {
	case "play":
		if len(args) != 3 {
			return fmt.Errorf("usage: play <entity> <asset-name>")
		}
		return surface.TriggerPlayback(args[1], args[2])

	case "stop":
		if len(args) != 2 {
			return fmt.Errorf("usage: stop <entity>")
		}
		return surface.TriggerStop(args[1])

	case "upload":
		if len(args) != 3 {
			return fmt.Errorf("usage: upload <entity> <file>")
		}
		entity, file := args[1], args[2]

		path, err := upload.New("http://" + addr).Upload(entity, file)
		if err != nil {
			return err
		}
		record, err := reg.Append(entity, filepath.Base(file), path, upload.ContentType(file), operatorName)
		if err != nil {
			return err
		}
		notifier.Info("Uploaded %q for %s (%s)", record.Name, entity, record.Location)
		return nil

	case "remove":
		if len(args) != 3 {
			return fmt.Errorf("usage: remove <entity> <asset-name>")
		}
		record, err := reg.Remove(args[1], args[2])
		if err != nil {
			return err
		}
		notifier.Info("Removed %q from %s", record.Name, args[1])
		return nil

	case "list":
		if len(args) != 2 {
			return fmt.Errorf("usage: list <entity>")
		}
		records, err := reg.List(args[1])
		if err != nil {
			return err
		}
		if len(records) == 0 {
			notifier.Info("No audio registered for %s", args[1])
			return nil
		}
		for _, rec := range records {
			fmt.Printf("%s\t%s\t%s\n", rec.Name, rec.UploadedAt, rec.Location)
		}
		return nil

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// discoverHub browses mDNS for a hub, failing after a bounded wait
func discoverHub() string {
	log.Printf("No -server given, starting hub discovery...")

	disc := discovery.NewManager(discovery.Config{})
	disc.Browse()
	defer disc.Stop()

	select {
	case hub := <-disc.Servers():
		addr := fmt.Sprintf("%s:%d", hub.Host, hub.Port)
		log.Printf("Discovered hub at %s", addr)
		return addr
	case <-time.After(10 * time.Second):
		log.Fatalf("No hub found after 10 seconds")
		return ""
	}
}

// waitForRoster blocks briefly until the first roster snapshot lands
func waitForRoster(c *client.Client) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(c.Roster().Participants()) > 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// parseOwnership parses "Entity=3,Other=2" into grant levels
func parseOwnership(s string) (map[string]int, error) {
	if s == "" {
		return nil, nil
	}

	grants := make(map[string]int)
	for _, pair := range strings.Split(s, ",") {
		entity, level, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || entity == "" {
			return nil, fmt.Errorf("expected entity=level, got %q", pair)
		}
		n, err := strconv.Atoi(level)
		if err != nil || n < session.OwnershipNone || n > session.OwnershipOwner {
			return nil, fmt.Errorf("level must be 0-3, got %q", level)
		}
		grants[entity] = n
	}
	return grants, nil
}
