// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/ManuGH/physio/internal/auth"
	"github.com/ManuGH/physio/internal/backend"
)

func runLogin(ctx context.Context, c *cli, args []string) int {
	return login(ctx, c, "login", args, false)
}

func runAdminLogin(ctx context.Context, c *cli, args []string) int {
	return login(ctx, c, "admin-login", args, true)
}

func login(ctx context.Context, c *cli, name string, args []string, admin bool) int {
	fs, g := c.flagSet(name)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (default $PHYSIO_PASSWORD)")
	a, code := c.setup(fs, g, args)
	if a == nil {
		return code
	}
	pw := readPassword(*password)
	if *email == "" || pw == "" {
		return usageError(c, fs, "--email and --password are required")
	}

	var resp backend.LoginResponse
	var err error
	if admin {
		resp, err = a.api.AdminLogin(ctx, *email, pw)
	} else {
		resp, err = a.api.Login(ctx, *email, pw)
	}
	if errors.Is(err, backend.ErrUnauthorized) {
		msg := backend.Message(err)
		if msg == "" {
			msg = "invalid credentials"
		}
		fmt.Fprintf(a.stderr, "Login failed: %s\n", msg)
		return exitRuntime
	}
	if err != nil {
		return a.fail(err)
	}
	return a.storeLogin(resp, *email)
}

func (a *app) storeLogin(resp backend.LoginResponse, email string) int {
	role, err := auth.ParseRole(resp.Role)
	if err != nil {
		return a.fail(err)
	}
	sess, err := a.store.Login(auth.Session{
		Token:  resp.AccessToken,
		UserID: resp.UserID,
		Role:   role,
		Email:  email,
	})
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.stdout, "Signed in as %s (%s, user %d)\n", sess.Email, sess.Role, sess.UserID)
	return exitOK
}

func runLogout(_ context.Context, c *cli, args []string) int {
	fs, g := c.flagSet("logout")
	a, code := c.setup(fs, g, args)
	if a == nil {
		return code
	}
	if err := a.store.Logout(); err != nil {
		return a.fail(err)
	}
	fmt.Fprintln(a.stdout, "Signed out")
	return exitOK
}

func runWhoami(ctx context.Context, c *cli, args []string) int {
	fs, g := c.flagSet("whoami")
	offline := fs.Bool("offline", false, "do not verify the session with the backend")
	a, code := c.setup(fs, g, args)
	if a == nil {
		return code
	}
	sess, api, err := a.session("")
	if err != nil {
		return a.fail(err)
	}
	if !*offline {
		sess, err = a.store.Verify(ctx, sess, sess.Role, api.Identity)
		if err != nil {
			if errors.Is(err, auth.ErrUnauthenticated) {
				fmt.Fprintln(a.stderr, "Session expired or rejected by the backend. Please sign in again.")
				return exitRuntime
			}
			return a.fail(err)
		}
	}
	if a.flags.json {
		sess.Token = ""
		return a.printJSON(sess)
	}
	fmt.Fprintf(a.stdout, "%s (%s, user %d) signed in %s\n", sess.Email, sess.Role, sess.UserID, sess.IssuedAt.Format("2006-01-02 15:04"))
	return exitOK
}

func runSignup(ctx context.Context, c *cli, args []string) int {
	fs, g := c.flagSet("signup")
	fullName := fs.String("name", "", "full name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (default $PHYSIO_PASSWORD)")
	photo := fs.String("photo", "", "profile photo file")
	// patient
	age := fs.Int("age", 0, "age (patient)")
	gender := fs.String("gender", "", "gender (patient)")
	height := fs.Int("height-cm", 0, "height in cm (patient)")
	weight := fs.Float64("weight-kg", 0, "weight in kg (patient)")
	address := fs.String("address", "", "address (patient)")
	injury := fs.String("injury", "", "injury description (patient)")
	goals := fs.String("goals", "", "goals (patient)")
	// physician
	specialty := fs.String("specialization", "", "specialization (physician)")
	license := fs.String("license-id", "", "license id (physician)")
	years := fs.Int("years", 0, "years of experience (physician)")
	credential := fs.String("credential", "", "credential photo file (physician)")

	a, code := c.setup(fs, g, args)
	if a == nil {
		return code
	}
	kind := fs.Arg(0)
	if kind != "patient" && kind != "physician" {
		return usageError(c, fs, "usage: physio signup [flags] patient|physician")
	}
	pw := readPassword(*password)
	if *fullName == "" || *email == "" || pw == "" {
		return usageError(c, fs, "--name, --email and --password are required")
	}

	profilePhoto, err := readUpload(*photo)
	if err != nil {
		return a.fail(err)
	}

	if kind == "patient" {
		if *age <= 0 || *gender == "" {
			return usageError(c, fs, "--age and --gender are required for patients")
		}
		resp, err := a.api.RegisterPatient(ctx, backend.PatientSignup{
			FullName:          *fullName,
			Email:             *email,
			Password:          pw,
			Age:               *age,
			Gender:            *gender,
			HeightCM:          *height,
			WeightKG:          *weight,
			Address:           *address,
			InjuryDescription: *injury,
			Goals:             *goals,
			ProfilePhoto:      profilePhoto,
		})
		if err != nil {
			return a.fail(err)
		}
		return a.storeLogin(resp, *email)
	}

	if *specialty == "" {
		return usageError(c, fs, "--specialization is required for physicians")
	}
	credentialPhoto, err := readUpload(*credential)
	if err != nil {
		return a.fail(err)
	}
	err = a.api.RegisterPhysician(ctx, backend.PhysicianSignup{
		FullName:        *fullName,
		Email:           *email,
		Password:        pw,
		Specialization:  *specialty,
		LicenseID:       *license,
		YearsExperience: *years,
		ProfilePhoto:    profilePhoto,
		CredentialPhoto: credentialPhoto,
	})
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintln(a.stdout, "Registration submitted. An administrator must approve the account before you can sign in.")
	return exitOK
}

// readUpload loads a file for a multipart part. An empty path yields nil.
func readUpload(path string) (*backend.Upload, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	// #nosec G304 -- the user names the file to upload
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &backend.Upload{Filename: filepath.Base(path), ContentType: ct, Data: data}, nil
}
