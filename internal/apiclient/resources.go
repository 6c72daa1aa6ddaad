package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Backend paths consumed by the console.
const (
	PathLogin         = "/auth/login"
	PathResetPassword = "/auth/reset-password"

	PathStudents         = "/students/"
	PathClassRooms       = "/class_rooms/"
	PathSubjects         = "/subjects/"
	PathExams            = "/exams/"
	PathFeeStructures    = "/fees/structures"
	PathSalaries         = "/salaries/"
	PathAssets           = "/assets/"
	PathMyChildren       = "/parents/my-children/"
	PathAttendance       = "/attendance/"
	pathStudentMarks     = "/marks/student/%s/"
	pathClassAssignments = "/assignments/class/%s/"
)

// StudentMarksPath returns the marks listing path for a student.
func StudentMarksPath(studentID string) string {
	return fmt.Sprintf(pathStudentMarks, url.PathEscape(studentID))
}

// ClassAssignmentsPath returns the assignments listing path for a class room.
func ClassAssignmentsPath(classID string) string {
	return fmt.Sprintf(pathClassAssignments, url.PathEscape(classID))
}

func (c *Client) getRaw(ctx context.Context, path string) (json.RawMessage, error) {
	resp, err := c.Get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(resp.Body), nil
}

// Students lists students.
func (c *Client) Students(ctx context.Context) (json.RawMessage, error) {
	return c.getRaw(ctx, PathStudents)
}

// ClassRooms lists class rooms.
func (c *Client) ClassRooms(ctx context.Context) (json.RawMessage, error) {
	return c.getRaw(ctx, PathClassRooms)
}

// Subjects lists subjects.
func (c *Client) Subjects(ctx context.Context) (json.RawMessage, error) {
	return c.getRaw(ctx, PathSubjects)
}

// Exams lists exams.
func (c *Client) Exams(ctx context.Context) (json.RawMessage, error) {
	return c.getRaw(ctx, PathExams)
}

// FeeStructures lists fee structures.
func (c *Client) FeeStructures(ctx context.Context) (json.RawMessage, error) {
	return c.getRaw(ctx, PathFeeStructures)
}

// Salaries lists salary records.
func (c *Client) Salaries(ctx context.Context) (json.RawMessage, error) {
	return c.getRaw(ctx, PathSalaries)
}

// Assets lists school assets.
func (c *Client) Assets(ctx context.Context) (json.RawMessage, error) {
	return c.getRaw(ctx, PathAssets)
}

// MyChildren lists the signed-in parent's children.
func (c *Client) MyChildren(ctx context.Context) (json.RawMessage, error) {
	return c.getRaw(ctx, PathMyChildren)
}

// Attendance lists attendance records visible to the caller.
func (c *Client) Attendance(ctx context.Context) (json.RawMessage, error) {
	return c.getRaw(ctx, PathAttendance)
}

// StudentMarks lists marks for one student.
func (c *Client) StudentMarks(ctx context.Context, studentID string) (json.RawMessage, error) {
	return c.getRaw(ctx, StudentMarksPath(studentID))
}

// ClassAssignments lists assignments for one class room.
func (c *Client) ClassAssignments(ctx context.Context, classID string) (json.RawMessage, error) {
	return c.getRaw(ctx, ClassAssignmentsPath(classID))
}

type loginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Login exchanges credentials for a token pair. The raw response fields are
// available through Token.Extra (for example "role").
func (c *Client) Login(ctx context.Context, username, password string) (*oauth2.Token, error) {
	resp, err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   PathLogin,
		Form:   url.Values{"username": {username}, "password": {password}},
		NoAuth: true,
	})
	if err != nil {
		return nil, err
	}

	var lr loginResponse
	if decodeErr := resp.Decode(&lr); decodeErr != nil {
		return nil, decodeErr
	}
	if strings.TrimSpace(lr.AccessToken) == "" {
		return nil, errors.New("login response has no access token")
	}

	var extra map[string]any
	if decodeErr := json.Unmarshal(resp.Body, &extra); decodeErr != nil {
		return nil, fmt.Errorf("decode login response: %w", decodeErr)
	}

	tok := &oauth2.Token{
		AccessToken:  lr.AccessToken,
		RefreshToken: lr.RefreshToken,
		TokenType:    lr.TokenType,
	}
	if lr.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(lr.ExpiresIn) * time.Second)
	}
	return tok.WithExtra(extra), nil
}

// ResetPassword sets a new password using a reset token and returns the backend message.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	resp, err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   PathResetPassword,
		Body:   map[string]string{"token": token, "new_password": newPassword},
		NoAuth: true,
	})
	if err != nil {
		return "", err
	}

	var out struct {
		Msg string `json:"msg"`
	}
	if len(resp.Body) > 0 {
		if decodeErr := resp.Decode(&out); decodeErr != nil {
			return "", decodeErr
		}
	}
	return out.Msg, nil
}
