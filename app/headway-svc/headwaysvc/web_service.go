package headwaysvc

import (
	"context"
	"encoding/json"
	logger "log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

//defaultHttpHandler simple default http handler for default route
type defaultHttpHandler struct {
}

//ServeHTTP implements defaultHttpHandler http.Handler interface
func (h *defaultHttpHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Application-Status", "OK")
}

//scoresHandler serves the latest headway scores
type scoresHandler struct {
	log       *logger.Logger
	container *scoreContainer
}

//JsonScoreResponseWrapper provides the json response wrapper around headway scores
type JsonScoreResponseWrapper struct {
	Timestamp int64                    `json:"timestamp"`
	Scores    []map[string]interface{} `json:"scores"`
}

//ServeHTTP implements scoresHandler's http.Handler interface
func (s *scoresHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	scores, timestamp := s.container.currentScores()

	jsonWrapper := JsonScoreResponseWrapper{
		Timestamp: timestamp,
		Scores:    make([]map[string]interface{}, 0, len(scores)),
	}
	for i := range scores {
		jsonWrapper.Scores = append(jsonWrapper.Scores, scores[i].ToMap())
	}
	writeJson(s.log, w, jsonWrapper)
}

//predictionsHandler serves arrival predictions for one stop
type predictionsHandler struct {
	log       *logger.Logger
	container *scoreContainer
}

//JsonPredictionResponseWrapper provides the json response wrapper around predictions
type JsonPredictionResponseWrapper struct {
	StopId      string                   `json:"stop_id"`
	Timestamp   int64                    `json:"timestamp"`
	Predictions []map[string]interface{} `json:"predictions"`
}

//ServeHTTP implements predictionsHandler's http.Handler interface
func (p *predictionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stopId := mux.Vars(r)["stopId"]
	routeId := r.FormValue("route")
	limit := 0
	if limitParam := r.FormValue("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	predictor := p.container.currentPredictor()
	if predictor == nil {
		http.Error(w, "No feed snapshot loaded yet", http.StatusServiceUnavailable)
		return
	}

	now := time.Now().Unix()
	results := predictor.PredictArrivalsForStop(stopId, routeId, limit)
	jsonWrapper := JsonPredictionResponseWrapper{
		StopId:      stopId,
		Timestamp:   now,
		Predictions: make([]map[string]interface{}, 0, len(results)),
	}
	for i := range results {
		jsonWrapper.Predictions = append(jsonWrapper.Predictions, results[i].ToMap(now))
	}
	writeJson(p.log, w, jsonWrapper)
}

//writeJson marshals a response wrapper to the http.ResponseWriter
func writeJson(log *logger.Logger, w http.ResponseWriter, wrapper interface{}) {
	jsonData, err := json.Marshal(wrapper)
	if err != nil {
		log.Printf("Error marshaling response to json: error:%v\n", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(jsonData)
	if err != nil {
		log.Printf("Error writing json response: %s", err)
	}
}

//createServer creates configured http.Server for score and prediction requests
func createServer(log *logger.Logger,
	container *scoreContainer,
	httpPort int) *http.Server {

	r := mux.NewRouter()
	r.Handle("/", &defaultHttpHandler{})
	r.Handle("/scores", &scoresHandler{log: log, container: container})
	r.Handle("/stops/{stopId}/predictions", &predictionsHandler{log: log, container: container})
	srv := &http.Server{
		Addr: strings.Join([]string{"0.0.0.0", strconv.Itoa(httpPort)}, ":"),
		// Good practice to set timeouts to avoid Slowloris attacks.
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      r,
	}
	return srv
}

//runWebService starts up the web service, and terminates on shutdown signal
func runWebService(log *logger.Logger,
	wg *sync.WaitGroup,
	container *scoreContainer,
	httpPort int,
	shutdownSignal chan bool,
) {
	wg.Add(1)
	defer wg.Done()
	srv := createServer(log, container, httpPort)
	log.Printf("Starting server on port %d", httpPort)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Printf("server ListenAndServe ended. %s", err)
		}
	}()
	<-shutdownSignal
	log.Printf("ending webservice on shutdown signal")
	shutdownCtx, serverCancelFunc := context.WithTimeout(context.Background(), time.Duration(5)*time.Second)
	defer serverCancelFunc()
	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		log.Printf("error shutting down webservice, error:%s", err)
	}
}
