package worker

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strconv"

	"pkg.jsn.cam/sentireduce/pkg/sentireduce/protocol"
)

// Server serves this worker's stored partitions to reducers on other
// workers. It listens on an ephemeral port chosen at construction.
type Server struct {
	storage  *Storage
	mux      *http.ServeMux
	listener net.Listener
	endpoint string
}

func NewServer(storage *Storage) (*Server, error) {
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		return nil, err
	}

	port := listener.Addr().(*net.TCPAddr).Port

	ip, err := getLocalIP()
	if err != nil {
		listener.Close()
		return nil, err
	}

	s := &Server{
		storage:  storage,
		mux:      http.NewServeMux(),
		listener: listener,
		endpoint: "http://" + ip + ":" + strconv.Itoa(port),
	}
	s.setupRoutes()

	return s, nil
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /data/{jobID}/partition/{partition}", s.handleGetPartition)
	s.mux.HandleFunc("POST /cleanup/{jobID}", s.handleCleanup)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /stats", s.handleStats)
}

func (s *Server) handleGetPartition(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobID")

	partition, err := strconv.Atoi(r.PathValue("partition"))
	if err != nil {
		http.Error(w, "invalid partition", http.StatusBadRequest)
		return
	}

	data, err := s.storage.GetPartition(jobID, partition)
	if err != nil {
		log.Printf("[WORKER-SERVER] Error getting partition %d for job %s: %v", partition, jobID, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	log.Printf("[WORKER-SERVER] Serving partition %d for job %s (%d KVs)", partition, jobID, len(data))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobID")

	if err := s.storage.CleanupJob(jobID); err != nil {
		log.Printf("[WORKER-SERVER] Error cleaning up job %s: %v", jobID, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	log.Printf("[WORKER-SERVER] Cleaned up job %s", jobID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(protocol.HealthResponse{Status: "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.storage.Stats())
}

// Start begins serving in the background.
func (s *Server) Start() {
	log.Printf("[WORKER-SERVER] Starting data server on %s", s.endpoint)

	go func() {
		if err := http.Serve(s.listener, s.mux); err != nil {
			log.Printf("[WORKER-SERVER] Server error: %v", err)
		}
	}()
}

// GetEndpoint returns the full HTTP endpoint URL.
func (s *Server) GetEndpoint() string {
	return s.endpoint
}

func (s *Server) Close() error {
	return s.listener.Close()
}

// getLocalIP returns the first non-loopback IPv4 address of the host.
func getLocalIP() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}

	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String(), nil
			}
		}
	}

	return "", net.ErrClosed
}
