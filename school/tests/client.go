package tests

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"school_platform/school/services"
	"time"

	"github.com/go-chi/chi/v5"
)

type httpTestRequest struct {
	api http.Handler

	method   string
	endpoint string
	headers  map[string]string
	json     interface{}
	body     io.Reader
	login    *loginInfo
}

func newHttpTestRequest(api http.Handler, method, endpoint string) *httpTestRequest {
	return &httpTestRequest{
		api:      api,
		method:   method,
		endpoint: endpoint,
		headers:  nil,
		json:     nil,
		body:     nil,
	}
}

func (r *httpTestRequest) Header(key, value string) *httpTestRequest {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[key] = value
	return r
}

func (r *httpTestRequest) Login(email, password string) *httpTestRequest {
	r.login = &loginInfo{Email: email, Password: password}
	return r
}

func (r *httpTestRequest) Auth(token string) *httpTestRequest {
	return r.Header("Authorization", fmt.Sprintf("Bearer %v", token))
}

func (r *httpTestRequest) Json(data interface{}) *httpTestRequest {
	r.json = data
	return r
}

// response body will be parsed into result, passing nil indicates that no result is returned.
func (r *httpTestRequest) Do(result interface{}) error {
	if r.json != nil {
		body := new(bytes.Buffer)
		err := json.NewEncoder(body).Encode(r.json)
		if err != nil {
			return fmt.Errorf("error encoding json body for endpoint %v: %w", r.endpoint, err)
		}
		r.body = body
	}

	req := httptest.NewRequest(r.method, r.endpoint, r.body)
	if r.headers != nil {
		for k, v := range r.headers {
			req.Header.Add(k, v)
		}
	}

	if r.login != nil {
		req.SetBasicAuth(r.login.Email, r.login.Password)
	}

	w := httptest.NewRecorder()

	r.api.ServeHTTP(w, req)

	res := w.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		switch res.StatusCode {
		case http.StatusUnauthorized:
			return ErrUnauthorized
		case http.StatusForbidden:
			return ErrForbidden
		case http.StatusNotFound:
			return ErrNotFound
		}
		return fmt.Errorf("%v request to endpoint %v returned status %d, content '%v'", r.method, r.endpoint, res.StatusCode, w.Body.String())
	}

	if result != nil {
		err := json.NewDecoder(res.Body).Decode(result)
		if err != nil {
			return fmt.Errorf("error parsing %v response from endpoint %v: %w", r.method, r.endpoint, err)
		}
	}

	return nil
}

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

type client struct {
	api       chi.Router
	authToken string
	userId    string
}

func (c *client) Get(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "GET", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

func (c *client) Post(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "POST", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

func (c *client) Delete(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "DELETE", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

type loginInfo struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *client) signup(name, email, password string) (loginInfo, error) {
	body := map[string]string{
		"name": name, "email": email, "password": password,
	}

	err := c.Post("/user/signup").Json(body).Do(nil)
	if err != nil {
		return loginInfo{}, err
	}

	return loginInfo{Email: email, Password: password}, nil
}

func (c *client) login(login loginInfo) error {
	var res map[string]string
	err := c.Get("/user/login").Login(login.Email, login.Password).Do(&res)
	if err != nil {
		return err
	}

	c.authToken = res["access_token"]
	c.userId = res["user_id"]

	return nil
}

func (c *client) addUser(name, email, password, role, className, grade string) (loginInfo, error) {
	body := map[string]string{
		"name": name, "email": email, "password": password,
		"role": role, "class_name": className, "grade": grade,
	}

	err := c.Post("/user/create").Json(body).Do(nil)
	if err != nil {
		return loginInfo{}, err
	}

	return loginInfo{Email: email, Password: password}, nil
}

func (c *client) deleteUser(userId string) error {
	return c.Delete(fmt.Sprintf("/user/%v", userId)).Do(nil)
}

func (c *client) promoteAdmin(userId string) error {
	return c.Post(fmt.Sprintf("/user/%v/admin", userId)).Do(nil)
}

func (c *client) demoteAdmin(userId string) error {
	return c.Delete(fmt.Sprintf("/user/%v/admin", userId)).Do(nil)
}

func (c *client) listUsers() ([]services.UserInfo, error) {
	var res []services.UserInfo
	err := c.Get("/user/list").Do(&res)
	return res, err
}

func (c *client) userInfo() (services.UserInfo, error) {
	var res services.UserInfo
	err := c.Get("/user/info").Do(&res)
	return res, err
}

func (c *client) addChild(name, className string) (string, error) {
	body := map[string]string{"name": name, "class_name": className}

	var res map[string]string
	err := c.Post("/user/children").Json(body).Do(&res)
	return res["child_id"], err
}

func (c *client) listChildren() ([]services.ChildInfo, error) {
	var res []services.ChildInfo
	err := c.Get("/user/children").Do(&res)
	return res, err
}

func (c *client) deleteChild(childId string) error {
	return c.Delete(fmt.Sprintf("/user/children/%v", childId)).Do(nil)
}

func (c *client) createHomework(title, className string, dueDate time.Time) (string, error) {
	body := map[string]interface{}{
		"title": title, "class_name": className, "due_date": dueDate,
	}

	var res map[string]string
	err := c.Post("/homework/create").Json(body).Do(&res)
	return res["homework_id"], err
}

func (c *client) createInteractiveHomework(title string, dueDate time.Time, items map[string]interface{}) (string, error) {
	body := map[string]interface{}{
		"title": title, "due_date": dueDate, "interactive": true, "items": items,
	}

	var res map[string]string
	err := c.Post("/homework/create").Json(body).Do(&res)
	return res["homework_id"], err
}

func (c *client) listHomeworks() ([]services.HomeworkInfo, error) {
	var res []services.HomeworkInfo
	err := c.Get("/homework/list").Do(&res)
	return res, err
}

func (c *client) updateHomework(homeworkId string, updates map[string]interface{}) error {
	return c.Post(fmt.Sprintf("/homework/%v", homeworkId)).Json(updates).Do(nil)
}

func (c *client) deleteHomework(homeworkId string) error {
	return c.Delete(fmt.Sprintf("/homework/%v", homeworkId)).Do(nil)
}

func (c *client) feed(childId string) (services.FeedResponse, error) {
	var res services.FeedResponse
	err := c.Get(fmt.Sprintf("/homework/feed?child_id=%v", childId)).Do(&res)
	return res, err
}

func (c *client) submit(body map[string]interface{}) error {
	return c.Post("/homework/submit").Json(body).Do(nil)
}

func (c *client) complete(homeworkId string, body map[string]interface{}) error {
	return c.Post(fmt.Sprintf("/homework/%v/complete", homeworkId)).Json(body).Do(nil)
}

func (c *client) submissions(homeworkId string) (services.SubmissionRollup, error) {
	var res services.SubmissionRollup
	err := c.Get(fmt.Sprintf("/homework/%v/submissions", homeworkId)).Do(&res)
	return res, err
}

func (c *client) allSubmissions() ([]services.SubmissionRollup, error) {
	var res []services.SubmissionRollup
	err := c.Get("/homework/submissions").Do(&res)
	return res, err
}

func (c *client) recordAttendance(childId, date, status string, late bool) error {
	body := map[string]interface{}{
		"child_id": childId, "date": date, "status": status, "late": late,
	}
	return c.Post("/attendance/record").Json(body).Do(nil)
}

func (c *client) recordBulkAttendance(date string, entries []map[string]interface{}) error {
	body := map[string]interface{}{"date": date, "entries": entries}
	return c.Post("/attendance/bulk").Json(body).Do(nil)
}

func (c *client) classAttendance(date string) ([]services.AttendanceRecord, error) {
	var res []services.AttendanceRecord
	err := c.Get(fmt.Sprintf("/attendance/?date=%v", date)).Do(&res)
	return res, err
}

func (c *client) childAttendance(childId string) ([]services.AttendanceRecord, error) {
	var res []services.AttendanceRecord
	err := c.Get(fmt.Sprintf("/attendance/child/%v", childId)).Do(&res)
	return res, err
}

func (c *client) sendMessage(recipientId, subject, body string) (string, error) {
	req := map[string]string{
		"recipient_id": recipientId, "subject": subject, "body": body,
	}

	var res map[string]string
	err := c.Post("/message/send").Json(req).Do(&res)
	return res["message_id"], err
}

func (c *client) inbox() ([]services.MessageInfo, error) {
	var res []services.MessageInfo
	err := c.Get("/message/inbox").Do(&res)
	return res, err
}

func (c *client) sent() ([]services.MessageInfo, error) {
	var res []services.MessageInfo
	err := c.Get("/message/sent").Do(&res)
	return res, err
}

func (c *client) markRead(messageId string) error {
	return c.Post(fmt.Sprintf("/message/%v/read", messageId)).Do(nil)
}

func (c *client) notifications() ([]services.NotificationInfo, error) {
	var res []services.NotificationInfo
	err := c.Get("/message/notifications").Do(&res)
	return res, err
}

func (c *client) markNotificationRead(notificationId string) error {
	return c.Post(fmt.Sprintf("/message/notifications/%v/read", notificationId)).Do(nil)
}

func (c *client) createEvent(title string, date time.Time) (map[string]string, error) {
	body := map[string]interface{}{"title": title, "date": date}

	var res map[string]string
	err := c.Post("/event/create").Json(body).Do(&res)
	return res, err
}

func (c *client) listEvents(status string) ([]services.EventInfo, error) {
	endpoint := "/event/list"
	if status != "" {
		endpoint += "?status=" + status
	}

	var res []services.EventInfo
	err := c.Get(endpoint).Do(&res)
	return res, err
}

func (c *client) approveEvent(eventId string) error {
	return c.Post(fmt.Sprintf("/event/%v/approve", eventId)).Do(nil)
}

func (c *client) rejectEvent(eventId string) error {
	return c.Post(fmt.Sprintf("/event/%v/reject", eventId)).Do(nil)
}
