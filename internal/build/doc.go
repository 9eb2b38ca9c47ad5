// Package build provides the compile pipeline for mirage.
//
// Every execution path (compile command, watch loop, periodic rebuild, deploy)
// routes through Service. A compile is a full rebuild into a private staging
// directory that is promoted over the published output only when every stage
// succeeded, so a failed compile never touches the site being served.
package build
