package controllers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestGetMe(t *testing.T) {
	f := newFixture()
	user := jonas()

	rec := f.serve(f.controller.GetMe, http.MethodGet, "/", "", nil, user)
	assertStatus(t, rec, http.StatusOK)
	got := decodeBody(t, rec)["data"].(map[string]any)["user"].(map[string]any)
	assert.Equal(t, user.ID.Hex(), got["id"])
	assert.NotContains(t, rec.Body.String(), "$2a$10$hash")

	rec = f.serve(f.controller.GetMe, http.MethodGet, "/", "", nil, nil)
	assertStatus(t, rec, http.StatusUnauthorized)
}

func TestGetAllUsers(t *testing.T) {
	f := newFixture()
	user := jonas()
	f.users.users[user.ID] = *user

	rec := f.serve(f.controller.GetAllUsers, http.MethodGet, "/api/v1/users?role=user&sort=name", "", nil, nil)
	assertStatus(t, rec, http.StatusOK)
	assert.EqualValues(t, 1, decodeBody(t, rec)["results"])
	assert.Equal(t, bson.D{{Key: "role", Value: "user"}}, f.users.lastSpec.Filter)
	assert.Equal(t, bson.D{{Key: "name", Value: 1}}, f.users.lastSpec.Sort)
}

func TestGetUser(t *testing.T) {
	f := newFixture()
	user := jonas()
	f.users.users[user.ID] = *user

	rec := f.serve(f.controller.GetUser, http.MethodGet, "/", "", map[string]string{"id": user.ID.Hex()}, nil)
	assertStatus(t, rec, http.StatusOK)

	rec = f.serve(f.controller.GetUser, http.MethodGet, "/", "", map[string]string{"id": primitive.NewObjectID().Hex()}, nil)
	assertStatus(t, rec, http.StatusNotFound)
	assert.Equal(t, "No user found with that ID", decodeBody(t, rec)["message"])
}

func TestHealthCheck(t *testing.T) {
	f := newFixture()

	rec := f.serve(f.controller.HealthCheckHandler, http.MethodGet, "/healthz", "", nil, nil)
	assertStatus(t, rec, http.StatusOK)
	assert.Equal(t, map[string]any{"mongo": "up"}, decodeBody(t, rec)["data"])

	f.controller.checks["redis"] = pinger{err: errors.New("dial tcp: connection refused")}
	rec = f.serve(f.controller.HealthCheckHandler, http.MethodGet, "/healthz", "", nil, nil)
	assertStatus(t, rec, http.StatusServiceUnavailable)
	body := decodeBody(t, rec)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, map[string]any{"mongo": "up", "redis": "down"}, body["data"])
}
