package publicapi

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/samber/lo"

	"github.com/bacalhau-project/callback-relay/pkg/image"
	"github.com/bacalhau-project/callback-relay/pkg/requeststore"
	"github.com/bacalhau-project/callback-relay/pkg/version"
)

type LivezResponse struct {
	Status string `json:"status"`
	Mode   string `json:"mode"`
}

type VersionResponse struct {
	VersionInfo *version.BuildVersionInfo `json:"build_version_info"`
}

type ImageResponse struct {
	Name string `json:"name"`
	ID   string `json:"id"`
	Size int    `json:"size"`
}

type ListImagesResponse struct {
	Images []ImageResponse `json:"images"`
}

type ListRequestsResponse struct {
	Requests []requeststore.Record `json:"requests"`
}

func (s *Server) livez(res http.ResponseWriter, req *http.Request) {
	writeJSON(res, req, http.StatusOK, LivezResponse{Status: "OK", Mode: s.mode})
}

func (s *Server) version(res http.ResponseWriter, req *http.Request) {
	writeJSON(res, req, http.StatusOK, VersionResponse{VersionInfo: version.Get()})
}

func (s *Server) listImages(res http.ResponseWriter, req *http.Request) {
	images := lo.Map(s.images.Entries(), func(e image.Entry, _ int) ImageResponse {
		return ImageResponse{Name: e.Name, ID: e.ID.String(), Size: len(e.Binary)}
	})
	writeJSON(res, req, http.StatusOK, ListImagesResponse{Images: images})
}

// listRequests returns the recorded requests, oldest first. The optional
// state query parameter keeps only requests in that state.
func (s *Server) listRequests(res http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	records, err := s.store.List(ctx)
	if err != nil {
		httpError(res, req, err, http.StatusInternalServerError)
		return
	}

	if stateParam := req.URL.Query().Get("state"); stateParam != "" {
		state, err := requeststore.ParseState(stateParam)
		if err != nil {
			httpError(res, req, err, http.StatusBadRequest)
			return
		}
		records = lo.Filter(records, func(r requeststore.Record, _ int) bool {
			return r.State == state
		})
	}
	if records == nil {
		records = []requeststore.Record{}
	}
	writeJSON(res, req, http.StatusOK, ListRequestsResponse{Requests: records})
}

func (s *Server) getRequest(res http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	record, err := s.store.Get(req.Context(), id)
	if err != nil {
		var notFound requeststore.ErrRequestNotFound
		if errors.As(err, &notFound) {
			httpError(res, req, err, http.StatusNotFound)
			return
		}
		httpError(res, req, err, http.StatusInternalServerError)
		return
	}
	writeJSON(res, req, http.StatusOK, record)
}
