package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"pryd/internal/config"
	"pryd/internal/memory"
)

// cmdStatus queries a running daemon's health endpoint.
func cmdStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultConfigPath(), "Configuration file path")
	addr := fs.String("addr", "", "Daemon listen address (overrides config)")
	full := fs.Bool("full", false, "Re-run component checks")
	fs.Parse(os.Args[2:])

	listen := *addr
	if listen == "" {
		cfg, err := config.NewLoader(*configPath).Load()
		if err != nil {
			fatal("load config: %v", err)
		}
		listen = cfg.Metrics.Listen
	}

	url := fmt.Sprintf("http://%s/healthz", listen)
	if *full {
		url += "?full=true"
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		fatal("daemon not reachable at %s: %v\n(is pryd running with metrics enabled?)", listen, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fatal("read response: %v", err)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		fmt.Println(string(body))
		return
	}
	fmt.Println(buf.String())
}

// cmdMemory inspects the contact memory store directly.
func cmdMemory() {
	fs := flag.NewFlagSet("memory", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultConfigPath(), "Configuration file path")
	dbPath := fs.String("db", "", "Memory database path (overrides config)")

	action := "contacts"
	args := os.Args[2:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		action = args[0]
		args = args[1:]
	}
	fs.Parse(args)

	path := *dbPath
	if path == "" {
		cfg, err := config.NewLoader(*configPath).Load()
		if err != nil {
			fatal("load config: %v", err)
		}
		path = cfg.Memory.Path
	}

	store, err := memory.Open(path)
	if err != nil {
		fatal("open memory store: %v", err)
	}
	defer store.Close()

	switch action {
	case "contacts":
		memoryContacts(store)
	case "show":
		if fs.NArg() < 1 {
			fatal("usage: pryd memory show <contact>")
		}
		memoryShow(store, fs.Arg(0))
	case "user":
		memoryUser(store)
	case "forget":
		if fs.NArg() < 1 {
			fatal("usage: pryd memory forget <contact>")
		}
		removed, err := store.Forget(fs.Arg(0))
		if err != nil {
			fatal("forget contact: %v", err)
		}
		if removed {
			fmt.Printf("Forgot %s.\n", fs.Arg(0))
		} else {
			fmt.Printf("Nothing remembered about %s.\n", fs.Arg(0))
		}
	default:
		fatal("unknown memory action %q (want contacts, show, user, forget)", action)
	}
}

func memoryContacts(store *memory.Store) {
	contacts, err := store.Contacts()
	if err != nil {
		fatal("list contacts: %v", err)
	}
	if len(contacts) == 0 {
		fmt.Println("No contacts remembered yet.")
		return
	}
	fmt.Printf("%-20s %8s  %s\n", "CONTACT", "CHATS", "LAST SEEN")
	for _, c := range contacts {
		fmt.Printf("%-20s %8d  %s\n", c.Name, c.InteractionCount,
			c.LastSeen.Format("2006-01-02 15:04"))
	}
}

func memoryShow(store *memory.Store, name string) {
	profile, err := store.Contact(name)
	if err != nil {
		fatal("load contact: %v", err)
	}
	if profile.InteractionCount == 0 && len(profile.Notes) == 0 {
		fmt.Printf("Nothing remembered about %s.\n", name)
		return
	}

	fmt.Printf("Contact: %s\n", name)
	fmt.Printf("Chats:   %d\n", profile.InteractionCount)
	if !profile.LastSeen.IsZero() {
		fmt.Printf("Last:    %s\n", profile.LastSeen.Format("2006-01-02 15:04"))
	}
	if len(profile.Topics) > 0 {
		fmt.Printf("Topics:  %s\n", strings.Join(profile.Topics, ", "))
	}
	if len(profile.Notes) > 0 {
		fmt.Println("Notes:")
		for _, note := range profile.Notes {
			fmt.Printf("  - %s\n", note)
		}
	}
}

func memoryUser(store *memory.Store) {
	notes, err := store.UserNotes()
	if err != nil {
		fatal("load user profile: %v", err)
	}
	if len(notes) == 0 {
		fmt.Println("Nothing remembered about the user yet.")
		return
	}
	fmt.Println("User profile:")
	for _, note := range notes {
		fmt.Printf("  - %s\n", note)
	}
}

// cmdConfig prints the effective configuration after defaults and
// environment overrides.
func cmdConfig() {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultConfigPath(), "Configuration file path")
	fs.Parse(os.Args[2:])

	cfg, err := config.NewLoader(*configPath).Load()
	if err != nil {
		fatal("load config: %v", err)
	}

	fmt.Printf("# %s\n", *configPath)
	if err := toml.NewEncoder(os.Stdout).Encode(cfg); err != nil {
		fatal("encode config: %v", err)
	}
}
