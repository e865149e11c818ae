package events

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
)

const viewerBuffer = 16

type hello struct {
	Type     string `json:"type"`
	ClientID string `json:"client_id"`
}

// NewSockJSHandler serves viewers under prefix. Each session first receives
// its client id; clients echo it on writes so their own events are not sent
// back to them.
func NewSockJSHandler(prefix string, hub *Hub, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "events.sockjs"))

	return sockjs.NewHandler(prefix, sockjs.DefaultOptions, func(session sockjs.Session) {
		v := &Viewer{ID: uuid.NewString(), Send: make(chan []byte, viewerBuffer)}

		greeting, _ := json.Marshal(hello{Type: "hello", ClientID: v.ID})
		if err := session.Send(string(greeting)); err != nil {
			return
		}

		hub.Register(v)
		defer hub.Unregister(v)
		log.Debug("viewer connected", slog.String("viewer_id", v.ID), slog.Int("viewers", hub.Len()))

		go func() {
			for msg := range v.Send {
				if err := session.Send(string(msg)); err != nil {
					return
				}
			}
		}()

		for {
			if _, err := session.Recv(); err != nil {
				log.Debug("viewer disconnected", slog.String("viewer_id", v.ID), slog.Int("viewers", hub.Len()-1))
				return
			}
		}
	})
}
