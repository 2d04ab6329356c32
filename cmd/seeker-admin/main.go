package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	api "seeker/internal/http"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: seeker-admin [flags] <command>

Commands:
  add-url <URL>   seed the frontier with a URL
  get-all-url     list every URL not yet crawled

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	backendURL := flag.String("backend-url", "http://localhost:8080", "coordinator URL")
	flag.Usage = usage
	flag.Parse()

	base := strings.TrimRight(*backendURL, "/")
	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	switch args[0] {
	case "add-url":
		if len(args) != 2 {
			usage()
			os.Exit(2)
		}
		addURL(base, args[1])
	case "get-all-url":
		getAllURL(base)
	default:
		usage()
		os.Exit(2)
	}
}

func addURL(base, rawURL string) {
	body, err := json.Marshal(api.EnqueueRequest{URL: rawURL})
	if err != nil {
		log.Fatalf("marshal request: %v", err)
	}

	resp, err := http.Post(base+"/admin/queue", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var er api.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&er)
		log.Fatalf("add-url failed (%d): %s", resp.StatusCode, er.Error)
	}

	var job api.GetJobResponse
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		log.Fatalf("decode response: %v", err)
	}
	fmt.Printf("queued %s (job %d)\n", job.URL, job.ID)
}

func getAllURL(base string) {
	resp, err := http.Get(base + "/admin/queue")
	if err != nil {
		log.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var er api.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&er)
		log.Fatalf("get-all-url failed (%d): %s", resp.StatusCode, er.Error)
	}

	var queue api.QueueResponse
	if err := json.NewDecoder(resp.Body).Decode(&queue); err != nil {
		log.Fatalf("decode response: %v", err)
	}
	for _, u := range queue.URLs {
		fmt.Println(u)
	}
}
