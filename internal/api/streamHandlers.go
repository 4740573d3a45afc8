package api

import (
	"bufio"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/clintjedwards/gofer/internal/models"
	"github.com/clintjedwards/gofer/internal/scheduler"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/nxadm/tail"

	"github.com/rs/zerolog/log"
)

var websocketUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// readLines forwards each line from reader into the returned channel. The forwarder stops early
// when done closes so an abandoned stream does not strand the goroutine mid-send; the channel is
// closed once the reader is exhausted or the forwarder stops.
func readLines(reader io.Reader, done <-chan struct{}) <-chan string {
	lines := make(chan string)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(reader)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()

	return lines
}

// eventMatchesFilter reports whether an event passes the caller supplied kind filter. An empty
// filter or a filter containing ANY matches everything.
func eventMatchesFilter(filter []models.EventKind, kind models.EventKind) bool {
	if len(filter) == 0 {
		return true
	}

	for _, wanted := range filter {
		if wanted == models.EventKindAny || wanted == kind {
			return true
		}
	}

	return false
}

// streamEventsHandler streams events from the event system over a websocket as JSON frames. Query
// params: history=true replays stored events before going live, reverse=true replays newest first,
// filter=KIND_A,KIND_B restricts the stream to the named event kinds.
func (apictx *APIContext) streamEventsHandler(w http.ResponseWriter, r *http.Request) {
	_, err := apictx.authenticateHTTPRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	history, _ := strconv.ParseBool(r.URL.Query().Get("history"))
	reverse, _ := strconv.ParseBool(r.URL.Query().Get("reverse"))

	filter := []models.EventKind{}
	if filterRaw := r.URL.Query().Get("filter"); filterRaw != "" {
		for _, kind := range strings.Split(filterRaw, ",") {
			filter = append(filter, models.EventKind(strings.ToUpper(strings.TrimSpace(kind))))
		}
	}

	conn, err := websocketUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("could not upgrade event stream connection")
		return
	}
	defer conn.Close()

	// Drain control messages so we notice when the client goes away.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Live events are subscribed to before the history replay so that events fired during the
	// replay are not lost. Duplicates at the boundary are possible and acceptable.
	subscription, err := apictx.events.Subscribe(models.EventKindAny)
	if err != nil {
		log.Error().Err(err).Msg("could not subscribe to event stream")
		return
	}
	defer apictx.events.Unsubscribe(subscription)

	if history {
		for event := range apictx.events.GetAll(reverse) {
			if !eventMatchesFilter(filter, event.Kind) {
				continue
			}

			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}

	for {
		select {
		case <-apictx.context.ctx.Done():
			return
		case <-clientGone:
			return
		case event, open := <-subscription.Events:
			if !open {
				return
			}

			if !eventMatchesFilter(filter, event.Kind) {
				continue
			}

			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}

// streamTaskExecutionLogsHandler streams a task execution's log file over a websocket line by
// line. The stream follows the file while the container is still running and ends once the EOF
// marker is written.
func (apictx *APIContext) streamTaskExecutionLogsHandler(w http.ResponseWriter, r *http.Request) {
	token, err := apictx.authenticateHTTPRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	namespace := chi.URLParam(r, "namespace")
	pipeline := chi.URLParam(r, "pipeline")
	taskID := chi.URLParam(r, "task")

	runID, err := strconv.ParseInt(chi.URLParam(r, "run"), 10, 64)
	if err != nil {
		http.Error(w, "run id must be a number", http.StatusBadRequest)
		return
	}

	if !tokenHasAccess(token, namespace) {
		http.Error(w, "token does not have access to this namespace", http.StatusUnauthorized)
		return
	}

	storedExecution, err := apictx.db.GetPipelineTaskExecution(apictx.db, namespace, pipeline, runID, taskID)
	if err != nil {
		http.Error(w, "task execution not found", http.StatusNotFound)
		return
	}

	var taskExecution models.TaskExecution
	taskExecution.FromStorage(&storedExecution)

	if taskExecution.LogsExpired {
		http.Error(w, "task execution logs have expired and are no longer available", http.StatusGone)
		return
	}

	if taskExecution.LogsRemoved {
		http.Error(w, "task execution logs have been removed", http.StatusGone)
		return
	}

	logFilePath := taskExecutionLogFilePath(apictx.config.TaskExecutionLogsDir, namespace, pipeline, runID, taskID)

	conn, err := websocketUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("could not upgrade log stream connection")
		return
	}
	defer conn.Close()

	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	logFile, err := tail.TailFile(logFilePath, tail.Config{
		Follow: true,
		ReOpen: false,
		Logger: tail.DiscardingLogger,
	})
	if err != nil {
		log.Error().Err(err).Str("path", logFilePath).Msg("could not tail log file")
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "could not open log file"))
		return
	}
	defer func() {
		_ = logFile.Stop()
	}()

	for {
		select {
		case <-apictx.context.ctx.Done():
			return
		case <-clientGone:
			return
		case line, open := <-logFile.Lines:
			if !open {
				return
			}

			if line.Err != nil {
				continue
			}

			if strings.Contains(line.Text, GOFEREOF) {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, []byte(line.Text)); err != nil {
				return
			}
		}
	}
}

// streamExtensionLogsHandler streams a running extension container's logs over a websocket.
// Extension logs can contain details about other namespaces so only management tokens may read them.
func (apictx *APIContext) streamExtensionLogsHandler(w http.ResponseWriter, r *http.Request) {
	token, err := apictx.authenticateHTTPRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	if token != nil && !strings.EqualFold(string(token.Kind), string(models.TokenKindManagement)) {
		http.Error(w, "management token required for this action", http.StatusUnauthorized)
		return
	}

	extensionID := chi.URLParam(r, "extension")

	if _, exists := apictx.extensions.Get(extensionID); !exists {
		http.Error(w, "extension not found", http.StatusNotFound)
		return
	}

	logReader, err := apictx.scheduler.GetLogs(scheduler.GetLogsRequest{
		ID: extensionContainerID(extensionID),
	})
	if err != nil {
		http.Error(w, "could not get extension logs", http.StatusInternalServerError)
		return
	}

	conn, err := websocketUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("could not upgrade log stream connection")
		return
	}
	defer conn.Close()

	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// The scheduler's log stream stays open while the container runs; closing it on the way out
	// unblocks the forwarding goroutine's reads.
	defer func() {
		if closer, ok := logReader.(io.Closer); ok {
			_ = closer.Close()
		}
	}()

	streamDone := make(chan struct{})
	defer close(streamDone)

	lines := readLines(logReader, streamDone)

	for {
		select {
		case <-apictx.context.ctx.Done():
			return
		case <-clientGone:
			return
		case line, open := <-lines:
			if !open {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				return
			}
		}
	}
}
