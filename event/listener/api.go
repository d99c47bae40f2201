package listener

import (
	"log"

	"chat-service/event"
)

var (
	ApiChannel = make(chan event.EventChannelData)
)

// Api drains events addressed to this service from the api queue. Nothing
// inbound drives chat behavior yet; events are logged for operators.
func Api() {
	for data := range ApiChannel {
		log.Printf("api event received: %s (%d bytes)", data.Action, len(data.Data))
	}
}
