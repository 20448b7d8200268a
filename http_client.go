package main

import (
	"net/http"
	"time"
)

const externalHTTPTimeout = 30 * time.Second

// externalHTTPClient serves short API calls (GitHub, model listing).
var externalHTTPClient = &http.Client{
	Timeout: externalHTTPTimeout,
}

// completionHTTPClient carries no fixed timeout; completion calls are
// bounded per request by the engine's context deadline instead.
var completionHTTPClient = &http.Client{}
