package telephony

import (
	"encoding/xml"
	"net/url"
)

// TwiML is built with encoding/xml rather than a provider SDK. Only the
// verbs needed to bridge a call into the media stream are modelled.

type twimlResponse struct {
	XMLName xml.Name     `xml:"Response"`
	Connect twimlConnect `xml:"Connect"`
}

type twimlConnect struct {
	Stream twimlStream `xml:"Stream"`
}

type twimlStream struct {
	URL string `xml:"url,attr"`
}

// ConnectPath prefixes the media stream endpoint for a conversation.
const ConnectPath = "/connect_call/"

// StreamURL is the websocket URL the provider connects the call audio to.
func (c *Client) StreamURL(conversationID string) string {
	return "wss://" + publicHost(c.baseURL) + ConnectPath + url.PathEscape(conversationID)
}

// ConnectionDescriptor returns the TwiML document that bridges the answered
// call into this service's media stream. It is deterministic for a given
// conversation id and client.
func (c *Client) ConnectionDescriptor(conversationID string) string {
	doc := twimlResponse{Connect: twimlConnect{Stream: twimlStream{URL: c.StreamURL(conversationID)}}}
	out, err := xml.Marshal(doc)
	if err != nil {
		// Only string fields; marshalling cannot fail.
		panic(err)
	}
	return string(out)
}
