package version

// Current is the semantic version of the adenrich tool, without a "v" prefix.
const Current = "0.4.1"
