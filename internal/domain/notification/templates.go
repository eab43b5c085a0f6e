// internal/domain/notification/templates.go
package notification

import (
	"fmt"

	"course_followup_service/internal/domain/course"
	"course_followup_service/internal/domain/push"
)

// BaseColor is used by the completion template and for checkpoints without an accent.
const BaseColor = "#6366f1"

// accentColors maps follow-up checkpoints to their header color.
var accentColors = map[course.CheckpointKey]string{
	course.CheckpointWeek2: "#10b981",
	course.CheckpointWeek4: "#3b82f6",
	course.CheckpointWeek6: "#f59e0b",
	course.CheckpointWeek8: "#8b5cf6",
}

// AccentColor returns the header color for a checkpoint, BaseColor when none is assigned.
func AccentColor(k course.CheckpointKey) string {
	if c, ok := accentColors[k]; ok {
		return c
	}
	return BaseColor
}

// MessageParams are the only inputs of message construction.
type MessageParams struct {
	CourseTitle  string
	CourseID     string
	Checkpoint   course.CheckpointKey
	DeepLinkBase string
}

// DeepLink points the trainee at the course page inside the messaging app.
func DeepLink(base, courseID string) string {
	return fmt.Sprintf("https://liff.line.me/%s/liff/course/%s", base, courseID)
}

// BuildMessage selects the completion template for week 0 (and "pre"), the follow-up template otherwise.
func BuildMessage(p MessageParams) push.Message {
	if _, numeric := p.Checkpoint.Week(); !numeric || p.Checkpoint == course.CheckpointWeek0 {
		return completionMessage(p)
	}
	return followUpMessage(p)
}

func intPtr(v int) *int { return &v }

func completionMessage(p MessageParams) push.Message {
	link := DeepLink(p.DeepLinkBase, p.CourseID)
	return push.Message{
		Type:    "flex",
		AltText: fmt.Sprintf("Course \"%s\" has finished! Please complete the assessment", p.CourseTitle),
		Contents: push.Bubble{
			Type: "bubble",
			Size: "mega",
			Header: &push.Component{
				Type:   "box",
				Layout: "vertical",
				Contents: []push.Component{{
					Type:   "box",
					Layout: "horizontal",
					Contents: []push.Component{
						{Type: "text", Text: "🎓", Size: "xxl", Flex: intPtr(0)},
						{Type: "text", Text: "Course Flow", Weight: "bold", Size: "lg", Color: "#ffffff", Margin: "md", Gravity: "center"},
					},
				}},
				BackgroundColor: BaseColor,
				PaddingAll:      "20px",
			},
			Body: &push.Component{
				Type:   "box",
				Layout: "vertical",
				Contents: []push.Component{
					{Type: "text", Text: "Course finished!", Weight: "bold", Size: "xl", Color: "#1f2937"},
					{Type: "text", Text: p.CourseTitle, Size: "md", Color: BaseColor, Weight: "bold", Margin: "md", Wrap: true},
					{Type: "separator", Margin: "xl"},
					{
						Type:   "box",
						Layout: "horizontal",
						Margin: "xl",
						Contents: []push.Component{
							{Type: "text", Text: "📋", Size: "lg", Flex: intPtr(0)},
							{Type: "text", Text: "Please complete the follow-up assessment\nWeek 0 (right after class)", Size: "sm", Color: "#4b5563", Wrap: true, Margin: "md"},
						},
					},
				},
				PaddingAll: "20px",
			},
			Footer: actionFooter(link, BaseColor),
			Styles: &push.BubbleStyles{Footer: &push.BlockStyle{Separator: true}},
		},
	}
}

func followUpMessage(p MessageParams) push.Message {
	link := DeepLink(p.DeepLinkBase, p.CourseID)
	color := AccentColor(p.Checkpoint)
	week := string(p.Checkpoint)
	return push.Message{
		Type:    "flex",
		AltText: fmt.Sprintf("Reminder: week %s follow-up assessment", week),
		Contents: push.Bubble{
			Type: "bubble",
			Size: "mega",
			Header: &push.Component{
				Type:   "box",
				Layout: "vertical",
				Contents: []push.Component{{
					Type:       "box",
					Layout:     "horizontal",
					AlignItems: "center",
					Contents: []push.Component{
						{Type: "text", Text: "📊", Size: "xxl", Flex: intPtr(0)},
						{
							Type:   "box",
							Layout: "vertical",
							Margin: "lg",
							Contents: []push.Component{
								{Type: "text", Text: "Follow-up", Weight: "bold", Size: "md", Color: "#ffffff"},
								{Type: "text", Text: "Week " + week, Weight: "bold", Size: "xxl", Color: "#ffffff"},
							},
						},
					},
				}},
				BackgroundColor: color,
				PaddingAll:      "20px",
			},
			Body: &push.Component{
				Type:   "box",
				Layout: "vertical",
				Contents: []push.Component{
					{Type: "text", Text: "Hello! 👋", Weight: "bold", Size: "lg", Color: "#1f2937"},
					{Type: "text", Text: fmt.Sprintf("It's time for the week %s follow-up assessment!", week), Size: "sm", Color: "#4b5563", Wrap: true, Margin: "md"},
					{Type: "separator", Margin: "xl"},
					{
						Type:   "box",
						Layout: "horizontal",
						Margin: "xl",
						Contents: []push.Component{
							{Type: "text", Text: "📚", Size: "md", Flex: intPtr(0)},
							{
								Type:   "box",
								Layout: "vertical",
								Margin: "md",
								Contents: []push.Component{
									{Type: "text", Text: "Course", Size: "xs", Color: "#9ca3af"},
									{Type: "text", Text: p.CourseTitle, Size: "sm", Color: "#1f2937", Weight: "bold", Wrap: true},
								},
							},
						},
					},
				},
				PaddingAll: "20px",
			},
			Footer: actionFooter(link, color),
			Styles: &push.BubbleStyles{Footer: &push.BlockStyle{Separator: true}},
		},
	}
}

func actionFooter(link, color string) *push.Component {
	return &push.Component{
		Type:   "box",
		Layout: "vertical",
		Contents: []push.Component{{
			Type:   "button",
			Action: &push.Action{Type: "uri", Label: "Start assessment", URI: link},
			Style:  "primary",
			Color:  color,
			Height: "md",
		}},
		PaddingAll: "20px",
	}
}
