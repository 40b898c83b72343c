package main

import (
	"chordkv/internal/rpc"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:4000", "address of a ring node to connect to")
	timeout := flag.Duration("timeout", 5*time.Second, "request timeout")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	conn, err := rpc.Dial(*addr)
	if err != nil {
		log.Fatalf("failed to connect to node at %s: %v", *addr, err)
	}
	defer conn.Close()
	api := rpc.NewClient(conn)

	currentAddr := *addr
	fmt.Printf("chordkv interactive client. Connected to %s\n", currentAddr)
	fmt.Println("Available commands: whois/get/set/lookup/use/exit")

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt(fmt.Sprintf("chordkv[%s]> ", currentAddr))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println("Aborted")
				continue
			}
			break
		}
		line.AppendHistory(input)

		args := strings.Fields(strings.TrimSpace(input))
		if len(args) == 0 {
			continue
		}
		cmd := strings.ToLower(args[0])

		ctx, cancel := context.WithTimeout(context.Background(), *timeout)

		switch cmd {

		case "whois":
			resp, err := api.Whois(ctx, &rpc.WhoisRequest{})
			if err != nil {
				fmt.Printf("whois failed: %v\n", err)
			} else {
				fmt.Printf("whois: key_slot=%d addr=%s\n", resp.KeySlot, resp.Addr)
			}

		case "lookup":
			if len(args) < 2 {
				fmt.Println("Usage: lookup <key_slot>")
				cancel()
				continue
			}
			slot, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				fmt.Printf("invalid key_slot %q: %v\n", args[1], err)
				cancel()
				continue
			}
			resp, err := api.Lookup(ctx, &rpc.LookupRequest{KeySlot: slot, Relay: true})
			if err != nil {
				fmt.Printf("lookup failed: %v\n", err)
			} else {
				fmt.Printf("lookup result: key_slot=%d addr=%s\n", resp.KeySlot, resp.Addr)
			}

		case "get":
			if len(args) < 2 {
				fmt.Println("Usage: get <key>")
				cancel()
				continue
			}
			key := args[1]
			resp, err := api.Get(ctx, &rpc.GetRequest{Key: key, Relay: true})
			if err != nil {
				fmt.Printf("get failed: %v\n", err)
			} else if resp.Error != "" {
				fmt.Printf("%s\n", resp.Error)
			} else {
				fmt.Printf("%s = %s\n", key, resp.Value)
			}

		case "set":
			if len(args) < 3 {
				fmt.Println("Usage: set <key> <value>")
				cancel()
				continue
			}
			key, value := args[1], args[2]
			resp, err := api.Set(ctx, &rpc.SetRequest{Key: key, Value: []byte(value), Relay: true})
			if err != nil {
				fmt.Printf("set failed: %v\n", err)
			} else {
				fmt.Printf("set succeeded: %v\n", resp.Success)
			}

		case "use":
			if len(args) < 2 {
				fmt.Println("Usage: use <addr>")
				cancel()
				continue
			}
			newAddr := args[1]
			newConn, err := rpc.Dial(newAddr)
			if err != nil {
				fmt.Printf("failed to connect to %s: %v\n", newAddr, err)
				cancel()
				continue
			}
			conn.Close()
			conn = newConn
			api = rpc.NewClient(conn)
			currentAddr = newAddr
			fmt.Printf("switched connection to %s\n", currentAddr)

		case "exit", "quit":
			fmt.Println("Bye!")
			cancel()
			return

		default:
			fmt.Printf("Unknown command: %s\n", cmd)
		}

		cancel()
	}
}
