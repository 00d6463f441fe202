package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

func tpsCmd(args []string) {
	fs := flag.NewFlagSet("tps", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)
	do(http.MethodGet, endpoint(*baseURL, "/admin/v1/tps", nil), nil)
}

func flagsCmd(args []string) {
	fs := flag.NewFlagSet("flags", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	actor := fs.String("actor", "", "actor id filter")
	kind := fs.String("kind", "", "detection kind filter")
	since := fs.Uint64("since", 0, "only flags at or after tick")
	limit := fs.Int("limit", 50, "result limit")
	counts := fs.Bool("counts", false, "print counts per kind instead")
	_ = fs.Parse(args)

	if *counts {
		do(http.MethodGet, endpoint(*baseURL, "/admin/v1/flags/counts", nil), nil)
		return
	}
	q := url.Values{}
	if *actor != "" {
		q.Set("actor", *actor)
	}
	if *kind != "" {
		q.Set("kind", *kind)
	}
	if *since > 0 {
		q.Set("since", fmt.Sprint(*since))
	}
	q.Set("limit", fmt.Sprint(*limit))
	do(http.MethodGet, endpoint(*baseURL, "/admin/v1/flags", q), nil)
}

// configCmd: config ls | config set <key> <value> | config rm <key>
func configCmd(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	sub := "ls"
	if fs.NArg() > 0 {
		sub = fs.Arg(0)
	}
	switch sub {
	case "ls":
		do(http.MethodGet, endpoint(*baseURL, "/admin/v1/config", nil), nil)
	case "set":
		if fs.NArg() != 3 {
			fmt.Fprintln(os.Stderr, "usage: config set <key> <value>")
			os.Exit(2)
		}
		body, _ := json.Marshal(map[string]string{"key": fs.Arg(1), "value": fs.Arg(2)})
		do(http.MethodPost, endpoint(*baseURL, "/admin/v1/config", nil), body)
	case "rm":
		if fs.NArg() != 2 {
			fmt.Fprintln(os.Stderr, "usage: config rm <key>")
			os.Exit(2)
		}
		do(http.MethodDelete, endpoint(*baseURL, "/admin/v1/config", url.Values{"key": {fs.Arg(1)}}), nil)
	default:
		fmt.Fprintln(os.Stderr, "unknown config subcommand:", sub)
		os.Exit(2)
	}
}

func endpoint(base, path string, q url.Values) string {
	u := strings.TrimRight(strings.TrimSpace(base), "/") + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func do(method, u string, body []byte) {
	req, err := http.NewRequest(method, u, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(strings.TrimSpace(string(b)))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}
