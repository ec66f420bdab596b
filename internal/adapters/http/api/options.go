package api

import "github.com/okian/podium/pkg/logger"

const defaultMaxUploadBytes = 1 << 20

// Option configures a Server.
type Option func(*Server)

// WithWriteToken requires "Authorization: Bearer <token>" on upload and evaluate.
// An empty token leaves them open.
func WithWriteToken(token string) Option {
	return func(s *Server) {
		s.writeToken = token
	}
}

// WithMaxUploadBytes bounds the multipart body of an upload.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
