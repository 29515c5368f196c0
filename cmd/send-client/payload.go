package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sungwon/mailchannels-relay/internal/email"
	"github.com/sungwon/mailchannels-relay/internal/mailchannels"
)

const redacted = "[redacted]"

// printPayload writes the request body that Send would post, with the DKIM
// private key masked.
func printPayload(client *mailchannels.Client, e *email.Email) {
	msg := client.BuildMessage(e)
	for i := range msg.Personalizations {
		if msg.Personalizations[i].DKIMPrivateKey != "" {
			msg.Personalizations[i].DKIMPrivateKey = redacted
		}
	}

	out, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode payload: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
