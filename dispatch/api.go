package dispatch

import (
	"net/http"

	"github.com/gofrs/uuid"

	"github.com/safing/entropool/api"
	"github.com/safing/entropool/log"
)

const jobIDPattern = "{id:[0-9a-fA-F-]{36}}"

func registerAPIEndpoints() error {
	if err := api.RegisterEndpoint(api.Endpoint{
		Path:        "jobs",
		Method:      http.MethodPost,
		StructFunc:  handleSubmit,
		Name:        "Submit Job",
		Description: "Queues a computation job for a stored entropy record.",
	}); err != nil {
		return err
	}

	if err := api.RegisterEndpoint(api.Endpoint{
		Path:        "jobs",
		StructFunc:  handleList,
		Name:        "List Jobs",
		Description: "Returns all jobs.",
	}); err != nil {
		return err
	}

	if err := api.RegisterEndpoint(api.Endpoint{
		Path:        "jobs/feed",
		HandlerFunc: handleFeed,
		Name:        "Job Feed",
		Description: "Streams job state changes over a websocket.",
	}); err != nil {
		return err
	}

	if err := api.RegisterEndpoint(api.Endpoint{
		Path:        "jobs/" + jobIDPattern,
		StructFunc:  handleGet,
		Name:        "Get Job",
		Description: "Returns the state of a job.",
	}); err != nil {
		return err
	}

	if err := api.RegisterEndpoint(api.Endpoint{
		Path:        "jobs/" + jobIDPattern,
		Method:      http.MethodDelete,
		ActionFunc:  handleReject,
		Name:        "Reject Job",
		Description: "Rejects a job that has not started yet.",
	}); err != nil {
		return err
	}

	return nil
}

func getDispatcher() (*Dispatcher, error) {
	d := DefaultDispatcher()
	if d == nil {
		return nil, errNotReady
	}
	return d, nil
}

func getJob(ar *api.Request) (*Dispatcher, *Job, error) {
	d, err := getDispatcher()
	if err != nil {
		return nil, nil, err
	}

	id, err := uuid.FromString(ar.URLVars["id"])
	if err != nil {
		return nil, nil, api.BadRequest("invalid job ID: %s", err)
	}
	job, ok := d.Get(id)
	if !ok {
		return nil, nil, ErrUnknownJob
	}
	return d, job, nil
}

func handleSubmit(ar *api.Request) (i interface{}, err error) {
	d, err := getDispatcher()
	if err != nil {
		return nil, err
	}

	var req JobRequest
	if err := json.Unmarshal(ar.InputData, &req); err != nil {
		return nil, api.BadRequest("invalid job request: %s", err)
	}

	job, err := d.Submit(ar.Ctx(), req)
	if err != nil {
		return nil, err
	}
	return job.Info(), nil
}

func handleList(_ *api.Request) (i interface{}, err error) {
	d, err := getDispatcher()
	if err != nil {
		return nil, err
	}

	jobs := d.List()
	infos := make([]*JobInfo, 0, len(jobs))
	for _, job := range jobs {
		infos = append(infos, job.Info())
	}
	return infos, nil
}

func handleGet(ar *api.Request) (i interface{}, err error) {
	_, job, err := getJob(ar)
	if err != nil {
		return nil, err
	}
	return job.Info(), nil
}

func handleReject(ar *api.Request) (msg string, err error) {
	d, job, err := getJob(ar)
	if err != nil {
		return "", err
	}

	if err := d.Reject(job.ID); err != nil {
		return "", err
	}
	return "Job rejected.", nil
}

func handleFeed(w http.ResponseWriter, r *http.Request) {
	d, err := getDispatcher()
	if err != nil {
		api.WriteError(w, err)
		return
	}

	feed, err := api.UpgradeToFeed(w, r)
	if err != nil {
		log.Warningf("dispatch: %s", err)
		return
	}
	defer feed.Close()

	events, unsubscribe := d.Subscribe()
	defer unsubscribe()

	// Send the current state first.
	for _, job := range d.List() {
		if !sendEvent(feed, &Event{Job: job.Info()}) {
			return
		}
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok || !sendEvent(feed, ev) {
				return
			}
		case <-feed.Done():
			return
		case <-r.Context().Done():
			return
		}
	}
}

func sendEvent(feed *api.Feed, ev *Event) bool {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Warningf("dispatch: failed to marshal job event: %s", err)
		return feed.Send(api.FeedMsgTypeError, []byte(err.Error()))
	}
	return feed.Send(api.FeedMsgTypeUpd, data)
}

