package websocket

import (
	"log"
	"net/http"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"vfdump/gba"
	"vfdump/gba/link"
)

// Handler serves bus to websocket clients. Each binary message is one link request and is
// answered by one binary message; requests from all clients are executed one at a time.
func Handler(bus gba.Bus) http.Handler {
	return ServerHandler(link.NewServer(bus))
}

// ServerHandler is Handler for a link server that may be shared with other transports.
func ServerHandler(server *link.Server) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(req, rw)
		if err != nil {
			log.Printf("ws: upgrade %s: %v\n", req.RemoteAddr, err)
			return
		}
		log.Printf("ws: %s connected\n", req.RemoteAddr)

		go func() {
			defer conn.Close()
			for {
				msg, op, err := wsutil.ReadClientData(conn)
				if err != nil {
					log.Printf("ws: %s disconnected: %v\n", req.RemoteAddr, err)
					return
				}
				if op != ws.OpBinary {
					continue
				}

				if err = wsutil.WriteServerMessage(conn, ws.OpBinary, server.Exec(msg)); err != nil {
					log.Printf("ws: %s write: %v\n", req.RemoteAddr, err)
					return
				}
			}
		}()
	})
}
