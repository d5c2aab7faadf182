// Package tools groups the tool layer:
//   - [github.com/germanamz/agentapi/pkg/tools/toolbox]: Tool type and the ordered ToolBox that dispatches calls
//   - [github.com/germanamz/agentapi/pkg/tools/weather]: the get_weather tool
//   - [github.com/germanamz/agentapi/pkg/tools/mcpserver]: serves a ToolBox over MCP
//   - [github.com/germanamz/agentapi/pkg/tools/mcpclient]: imports the tools of external MCP servers
package tools
