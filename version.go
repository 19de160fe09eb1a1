// Package devloop holds build metadata shared by the devloop commands.
package devloop

// Version is the devloop release version.
const Version = "0.1.0"
