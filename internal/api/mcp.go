package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mkale/grievd/internal/session"
	"github.com/mkale/grievd/internal/storage"
)

// NewMCPServer creates an MCP server exposing the grievance portal as tools
// for agent clients: filing, tracking, and statistics.
func NewMCPServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"grievd",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("Citizen grievance portal: file complaints, track them by tracking ID, and query portal statistics."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("file_complaint",
			mcp.WithDescription("File a new complaint with the grievance portal and receive a tracking ID."),
			mcp.WithString("name", mcp.Description("Submitter's full name"), mcp.Required()),
			mcp.WithString("email", mcp.Description("Submitter's email address"), mcp.Required()),
			mcp.WithString("department", mcp.Description("Target department name or 1-based list index"), mcp.Required()),
			mcp.WithString("category", mcp.Description("Complaint category name or 1-based list index"), mcp.Required()),
			mcp.WithString("description", mcp.Description("Detailed complaint description (10-2000 characters)"), mcp.Required()),
		),
		mcpFileComplaint(deps),
	)

	s.AddTool(
		mcp.NewTool("track_complaint",
			mcp.WithDescription("Look up a complaint's current status by its tracking ID."),
			mcp.WithString("tracking_id", mcp.Description("Tracking ID, e.g. GR518582ZTBEMB"), mcp.Required()),
		),
		mcpTrackComplaint(deps),
	)

	s.AddTool(
		mcp.NewTool("complaint_stats",
			mcp.WithDescription("Return portal-wide complaint counts grouped by status."),
		),
		mcpComplaintStats(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"grievd://complaints/recent",
			"Recent Complaints",
			mcp.WithResourceDescription("Last 10 complaints (summaries only, no submitter data)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpFileComplaint(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}
		email, err := req.RequireString("email")
		if err != nil {
			return mcpError("email is required"), nil
		}
		department, err := req.RequireString("department")
		if err != nil {
			return mcpError("department is required"), nil
		}
		category, err := req.RequireString("category")
		if err != nil {
			return mcpError("category is required"), nil
		}
		description, err := req.RequireString("description")
		if err != nil {
			return mcpError("description is required"), nil
		}

		name = strings.TrimSpace(name)
		if n := utf8.RuneCountInString(name); n < 2 || n > 100 {
			return mcpError("name must be 2-100 characters"), nil
		}
		if !emailPattern.MatchString(strings.TrimSpace(email)) {
			return mcpError("invalid email address"), nil
		}
		dept, ok := deps.Taxonomy.MatchDepartment(department)
		if !ok {
			return mcpError(fmt.Sprintf("unknown department %q", department)), nil
		}
		cat, ok := deps.Taxonomy.MatchCategory(category)
		if !ok {
			return mcpError(fmt.Sprintf("unknown category %q", category)), nil
		}
		description = strings.TrimSpace(description)
		if n := utf8.RuneCountInString(description); n < 10 || n > 2000 {
			return mcpError("description must be 10-2000 characters"), nil
		}

		draft := session.Draft{
			Name:        name,
			Email:       strings.TrimSpace(email),
			Department:  dept,
			Category:    cat,
			Description: description,
		}
		c, err := deps.submitComplaint(draft, "mcp")
		if err != nil {
			return mcpError(fmt.Sprintf("failed to file complaint: %v", err)), nil
		}

		b, err := json.Marshal(toComplaintResponse(c))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpTrackComplaint(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		trackingID, err := req.RequireString("tracking_id")
		if err != nil {
			return mcpError("tracking_id is required"), nil
		}

		c, err := deps.Store.GetComplaintByTrackingID(strings.ToUpper(strings.TrimSpace(trackingID)))
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("no complaint with tracking id %q", trackingID)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("lookup failed: %v", err)), nil
		}

		b, err := json.Marshal(toComplaintResponse(c))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpComplaintStats(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		counts, err := deps.Store.CountByStatus()
		if err != nil {
			return mcpError(fmt.Sprintf("stats query failed: %v", err)), nil
		}

		b, err := json.Marshal(counts)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal counts: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceRecent(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		complaints, err := deps.Store.ListRecentComplaints(10)
		if err != nil {
			return nil, fmt.Errorf("failed to list complaints: %w", err)
		}

		type complaintSummary struct {
			TrackingID string `json:"tracking_id"`
			Status     string `json:"status"`
			Department string `json:"department"`
			Category   string `json:"category"`
			Priority   string `json:"priority"`
			CreatedAt  string `json:"created_at"`
		}

		summaries := make([]complaintSummary, len(complaints))
		for i, c := range complaints {
			summaries[i] = complaintSummary{
				TrackingID: c.TrackingID,
				Status:     c.Status,
				Department: c.Department,
				Category:   c.Category,
				Priority:   c.Priority,
				CreatedAt:  c.CreatedAt.Format(time.RFC3339),
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal summaries: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
