package mainboilerplate

// Version and BuildDate of this build, injected via -ldflags.
var (
	Version   = "development"
	BuildDate = "unknown"
)
