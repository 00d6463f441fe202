package main

import (
	"crypto/subtle"
	"strings"

	"voxelguard.ai/internal/protocol"
	"voxelguard.ai/internal/transport/ws"
)

type operatorToken struct {
	token string
	tags  []string
}

// parseOperators reads "token=tag|tag,token2=tag". A token without tags
// gets "op".
func parseOperators(spec string) []operatorToken {
	var out []operatorToken
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tok, rawTags, _ := strings.Cut(part, "=")
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		var tags []string
		for _, t := range strings.Split(rawTags, "|") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
		if len(tags) == 0 {
			tags = []string{"op"}
		}
		out = append(out, operatorToken{token: tok, tags: tags})
	}
	return out
}

func operatorGrants(spec string) ws.Grants {
	ops := parseOperators(spec)
	if len(ops) == 0 {
		return nil
	}
	return func(h protocol.HelloMsg) []string {
		if h.Auth == nil || h.Auth.Token == "" {
			return nil
		}
		for _, op := range ops {
			if subtle.ConstantTimeCompare([]byte(op.token), []byte(h.Auth.Token)) == 1 {
				return append([]string(nil), op.tags...)
			}
		}
		return nil
	}
}
