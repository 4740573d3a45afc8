package api

import (
	"context"
	"net/http"

	"github.com/clintjedwards/gofer/internal/models"
	"github.com/danielgtaylor/huma/v2"
)

type (
	GetEventRequest struct {
		Auth    string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		EventID int64  `path:"event_id" example:"1" doc:"Unique identifier of the target event"`
	}
	GetEventResponse struct {
		Body struct {
			Event models.Event `json:"event" doc:"The requested event"`
		}
	}
)

func (apictx *APIContext) registerGetEvent(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "GetEvent",
		Method:      http.MethodGet,
		Path:        "/api/events/{event_id}",
		Summary:     "Get a single event",
		Description: "Returns a single event from the event system by id. For live streams of events use the " +
			"websocket endpoint instead.",
		Tags: []string{"Events"},
		// Handler //
	}, func(_ context.Context, request *GetEventRequest) (*GetEventResponse, error) {
		event, err := apictx.events.Get(request.EventID)
		if err != nil {
			return nil, huma.NewError(http.StatusNotFound, "event not found")
		}

		resp := &GetEventResponse{}
		resp.Body.Event = event

		return resp, nil
	})
}
