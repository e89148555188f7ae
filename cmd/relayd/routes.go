package main

import (
	"strings"

	"github.com/arya-analytics/relay"
	"github.com/cockroachdb/errors"
)

// parseRPCs parses routes of the form type:path. The path may itself contain
// colons.
func parseRPCs(specs []string) ([]relay.RPCID, error) {
	ids := make([]relay.RPCID, 0, len(specs))
	for _, s := range specs {
		parts := strings.SplitN(s, ":", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, errors.Newf("[relayd] - invalid rpc %q, expected type:path", s)
		}
		ids = append(ids, relay.RPCID{Type: parts[0], Path: parts[1]})
	}
	return ids, nil
}

// parseActions parses routes of the form type:datastore:path.
func parseActions(specs []string) ([]relay.ActionID, error) {
	ids := make([]relay.ActionID, 0, len(specs))
	for _, s := range specs {
		parts := strings.SplitN(s, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			return nil, errors.Newf("[relayd] - invalid action %q, expected type:datastore:path", s)
		}
		ids = append(ids, relay.ActionID{Type: parts[0], Datastore: parts[1], Path: parts[2]})
	}
	return ids, nil
}
