package rwviews

// Version is the release of the rwviews library.
const Version = "2.2.0"
