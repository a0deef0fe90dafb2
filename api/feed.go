package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tevino/abool"

	"github.com/safing/entropool/container"
	"github.com/safing/entropool/log"
)

// Feed message types.
const (
	FeedMsgTypeOk      = "ok"
	FeedMsgTypeUpd     = "upd"
	FeedMsgTypeDone    = "done"
	FeedMsgTypeError   = "error"
	FeedMsgTypeWarning = "warning"
)

const feedWriteTimeout = 10 * time.Second

// Feed is a one-way websocket connection that pushes messages of the form
// `<type>|<data>` to the client.
type Feed struct {
	conn      *websocket.Conn
	sendQueue chan []byte

	shutdownSignal chan struct{}
	shuttingDown   *abool.AtomicBool
}

var feedUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 65536,
}

// UpgradeToFeed upgrades the request to a websocket feed. On failure, an
// error response has already been written.
func UpgradeToFeed(w http.ResponseWriter, r *http.Request) (*Feed, error) {
	wsConn, err := feedUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("could not upgrade to websocket: %w", err)
	}

	feed := &Feed{
		conn:           wsConn,
		sendQueue:      make(chan []byte, 100),
		shutdownSignal: make(chan struct{}),
		shuttingDown:   abool.New(),
	}

	module.StartWorker("websocket feed reader", func(_ context.Context) error {
		feed.reader()
		return nil
	})
	module.StartWorker("websocket feed writer", func(_ context.Context) error {
		feed.writer()
		return nil
	})

	return feed, nil
}

// Send queues a message. It returns false if the feed is closed.
func (feed *Feed) Send(msgType string, data []byte) bool {
	c := container.New([]byte(msgType), []byte("|"))
	c.Append(data)

	select {
	case feed.sendQueue <- c.CompileData():
		return true
	case <-feed.shutdownSignal:
		return false
	}
}

// Done returns a channel that is closed when the feed is closed.
func (feed *Feed) Done() <-chan struct{} {
	return feed.shutdownSignal
}

// Close closes the feed.
func (feed *Feed) Close() {
	if feed.shuttingDown.SetToIf(false, true) {
		close(feed.shutdownSignal)
		_ = feed.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		_ = feed.conn.Close()
	}
}

// reader only handles control messages and detects when the client leaves.
func (feed *Feed) reader() {
	for {
		_, _, err := feed.conn.ReadMessage()
		if err != nil {
			if !feed.shuttingDown.IsSet() {
				feed.Close()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warningf("api: websocket read error: %s", err)
				}
			}
			return
		}
	}
}

func (feed *Feed) writer() {
	for {
		var data []byte

		select {
		case data = <-feed.sendQueue:
		case <-feed.shutdownSignal:
			return
		}

		_ = feed.conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
		err := feed.conn.WriteMessage(websocket.TextMessage, data)
		if err != nil {
			if !feed.shuttingDown.IsSet() {
				feed.Close()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warningf("api: websocket write error: %s", err)
				}
			}
			return
		}
	}
}
