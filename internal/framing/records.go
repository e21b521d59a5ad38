// Copyright (C) 2020 The boone Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package framing

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/codeactual/scrapeagent/internal/scrape"
)

// targetConfigRecord is the wire shape of one TargetConfig inside a metadata record.
type targetConfigRecord struct {
	Interval float64          `json:"interval"`
	Timeout  *float64         `json:"timeout"`
	Action   actionConfigJSON `json:"action"`
}

type actionConfigJSON struct {
	Type    string   `json:"type"`
	Method  *string  `json:"method,omitempty"`
	URL     string   `json:"url,omitempty"`
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`
}

// resultRecord is the wire shape of the "result" field of a metadata record.
type resultRecord struct {
	Outcome    string `json:"outcome"`
	Type       string `json:"type,omitempty"`
	Status     string `json:"status,omitempty"`
	ExitCode   *int   `json:"exit_code,omitempty"`
	BodySHA256 string `json:"body_sha256,omitempty"`
	Message    string `json:"message,omitempty"`
}

// metadataRecord is Record 1, always emitted.
type metadataRecord struct {
	TargetConfig targetConfigRecord `json:"target_config"`
	Result       resultRecord       `json:"result"`
}

// chunkRecord is Records 2..N, emitted only on success.
type chunkRecord struct {
	Id        string `json:"id"`
	Remaining int    `json:"remaining"`
	Data      string `json:"data"`
}

func targetConfigToRecord(cfg scrape.TargetConfig) targetConfigRecord {
	rec := targetConfigRecord{
		Interval: cfg.Interval.Seconds(),
	}
	if cfg.Timeout > 0 {
		t := cfg.Timeout.Seconds()
		rec.Timeout = &t
	}
	switch cfg.Action.Type {
	case scrape.ActionHTTP:
		method := cfg.Action.Method
		rec.Action = actionConfigJSON{Type: string(scrape.ActionHTTP), Method: &method, URL: cfg.Action.URL}
	case scrape.ActionCommand:
		rec.Action = actionConfigJSON{Type: string(scrape.ActionCommand), Command: cfg.Action.Command, Args: cfg.Action.Args}
	}
	return rec
}

// commandBody is the shaped payload for a Command success, matching original_source's
// result_processor.rs CommandBody: both streams rendered as lossy UTF-8.
type commandBody struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

// shapeBody returns the uncompressed payload that will be compressed and chunked for a
// successful call, per §4.E "Body shaping".
func shapeBody(ok scrape.Ok) []byte {
	if ok.Http != nil {
		return ok.Http.Body
	}
	body := commandBody{
		Stdout: strings.ToValidUTF8(string(ok.Command.Stdout), "�"),
		Stderr: strings.ToValidUTF8(string(ok.Command.Stderr), "�"),
	}
	b, err := json.Marshal(body)
	if err != nil {
		// inputs are fully controlled (two string fields); a failure here is a
		// programming error, not a runtime condition to recover from.
		panic(err)
	}
	return b
}

// buildMetadataRecord constructs Record 1 for a call outcome.
func buildMetadataRecord(cfg scrape.TargetConfig, ok scrape.Ok, scrapeErr *scrape.Err, bodyID Id) metadataRecord {
	rec := metadataRecord{TargetConfig: targetConfigToRecord(cfg)}

	if scrapeErr != nil {
		rec.Result = resultRecord{Outcome: "Error", Message: scrapeErr.Message}
		return rec
	}

	if ok.Http != nil {
		rec.Result = resultRecord{
			Outcome:    "Success",
			Type:       string(scrape.ActionHTTP),
			Status:     strconv.Itoa(ok.Http.Status),
			BodySHA256: bodyID.Hex(),
		}
		return rec
	}

	exitCode := ok.Command.ExitCode
	rec.Result = resultRecord{
		Outcome:    "Success",
		Type:       string(scrape.ActionCommand),
		ExitCode:   &exitCode,
		BodySHA256: bodyID.Hex(),
	}
	return rec
}

func chunkToRecord(id Id, c Chunk) chunkRecord {
	return chunkRecord{
		Id:        id.Hex(),
		Remaining: c.Remaining,
		Data:      base64.StdEncoding.EncodeToString(c.Data),
	}
}
