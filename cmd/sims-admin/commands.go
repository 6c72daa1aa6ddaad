package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/Vignesh6104/sims-console/internal/adapters/filestore"
	"github.com/Vignesh6104/sims-console/internal/apiclient"
	"github.com/Vignesh6104/sims-console/internal/tokenclaims"
)

const commandTimeout = 2 * time.Minute

const signInHint = "Your session has expired. Run `sims-admin login -u USER -p PASS` to sign in again.\n"

var errNotSignedIn = errors.New("not signed in; run `sims-admin login` first")

// session opens the token file and a client bound to it. An unrecoverable refresh
// failure clears the file and prints the sign-in hint.
func session(cmdCtx *commandContext) (*filestore.TokenFile, *apiclient.Client, error) {
	path, err := filestore.DefaultPath(cmdCtx.Config.TokenFile)
	if err != nil {
		return nil, nil, err
	}
	tokens, err := filestore.Open(path)
	if err != nil {
		return nil, nil, err
	}

	api := cmdCtx.Config.API
	client, err := apiclient.New(apiclient.Options{
		BaseURL:         api.BaseURL,
		Timeout:         api.Timeout,
		RefreshPath:     api.RefreshPath,
		AccessTokenPath: api.AccessTokenPath,
		Logger:          cmdCtx.Logger,
	})
	if err != nil {
		return nil, nil, err
	}

	bound := client.WithSession(tokens, func(context.Context) {
		_ = writef(cmdCtx.Stderr, signInHint)
	})
	return tokens, bound, nil
}

type loginOptions struct {
	Username string
	Password string
}

func parseLoginFlags(args []string, cmdCtx *commandContext) (loginOptions, error) {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(cmdCtx.Stderr)

	var opts loginOptions
	fs.StringVar(&opts.Username, "u", "", "Username (required)")
	fs.StringVar(&opts.Password, "p", "", "Password (required)")
	if err := fs.Parse(args); err != nil {
		return loginOptions{}, err
	}

	opts.Username = strings.TrimSpace(opts.Username)
	if opts.Username == "" || opts.Password == "" {
		return loginOptions{}, errors.New("-u and -p are required")
	}
	return opts, nil
}

func runLogin(cmdCtx *commandContext, args []string) error {
	opts, err := parseLoginFlags(args, cmdCtx)
	if err != nil {
		return err
	}
	tokens, client, err := session(cmdCtx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	tok, err := client.Login(ctx, opts.Username, opts.Password)
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			return errors.New("invalid username or password")
		}
		return err
	}
	if err = tokens.Save(ctx, filestore.Tokens{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}); err != nil {
		return err
	}

	role, _ := tok.Extra("role").(string)
	if role == "" {
		role = "unknown"
	}
	return writef(cmdCtx.Stdout, "Signed in as %s (role: %s). Tokens saved to %s\n", opts.Username, role, tokens.Path())
}

func runLogout(cmdCtx *commandContext, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %s", strings.Join(args, " "))
	}
	tokens, _, err := session(cmdCtx)
	if err != nil {
		return err
	}
	if err = tokens.Clear(cmdCtx.Ctx); err != nil {
		return err
	}
	return writef(cmdCtx.Stdout, "Signed out.\n")
}

func runWhoami(cmdCtx *commandContext, _ []string) error {
	tokens, _, err := session(cmdCtx)
	if err != nil {
		return err
	}
	access := tokens.AccessToken()
	if access == "" {
		return errNotSignedIn
	}

	claims, err := tokenclaims.NewReader(cmdCtx.Config.Auth.JWTSecret).Read(access)
	if err != nil {
		return fmt.Errorf("read access token: %w", err)
	}
	return writef(cmdCtx.Stdout, "user: %s\nrole: %s\nbackend: %s\n", claims.Subject, claims.Role, cmdCtx.Config.API.BaseURL)
}

func runGet(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.SetOutput(cmdCtx.Stderr)
	raw := fs.Bool("raw", false, "Print the body without indentation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: sims-admin get [-raw] PATH")
	}

	target, err := url.Parse(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("parse path: %w", err)
	}
	if target.IsAbs() || !strings.HasPrefix(target.Path, "/") {
		return fmt.Errorf("path %q must be absolute, e.g. /students/", fs.Arg(0))
	}

	tokens, client, err := session(cmdCtx)
	if err != nil {
		return err
	}
	if tokens.AccessToken() == "" {
		return errNotSignedIn
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	resp, err := client.Get(ctx, target.Path, target.Query())
	if err != nil {
		return err
	}

	return printJSON(cmdCtx.Stdout, resp.Body, *raw)
}

type listFn func(*apiclient.Client, context.Context) (json.RawMessage, error)

var listers = map[string]listFn{
	"students":       (*apiclient.Client).Students,
	"class-rooms":    (*apiclient.Client).ClassRooms,
	"subjects":       (*apiclient.Client).Subjects,
	"exams":          (*apiclient.Client).Exams,
	"fee-structures": (*apiclient.Client).FeeStructures,
	"salaries":       (*apiclient.Client).Salaries,
	"assets":         (*apiclient.Client).Assets,
	"attendance":     (*apiclient.Client).Attendance,
	"my-children":    (*apiclient.Client).MyChildren,
}

func runList(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(cmdCtx.Stderr)
	raw := fs.Bool("raw", false, "Print the body without indentation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	names := strings.Join(slices.Sorted(maps.Keys(listers)), "|")
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: sims-admin list [-raw] %s", names)
	}
	list, ok := listers[fs.Arg(0)]
	if !ok {
		return fmt.Errorf("unknown resource %q, want one of %s", fs.Arg(0), names)
	}

	tokens, client, err := session(cmdCtx)
	if err != nil {
		return err
	}
	if tokens.AccessToken() == "" {
		return errNotSignedIn
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	body, err := list(client, ctx)
	if err != nil {
		return err
	}
	return printJSON(cmdCtx.Stdout, body, *raw)
}

func printJSON(w io.Writer, body []byte, raw bool) error {
	if !raw {
		var buf bytes.Buffer
		if json.Indent(&buf, body, "", "  ") == nil {
			body = buf.Bytes()
		}
	}
	return writef(w, "%s\n", bytes.TrimRight(body, "\n"))
}

type resetOptions struct {
	Token       string
	NewPassword string
}

func runResetPassword(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("reset-password", flag.ContinueOnError)
	fs.SetOutput(cmdCtx.Stderr)

	var opts resetOptions
	fs.StringVar(&opts.Token, "token", "", "Reset token from the email link (required)")
	fs.StringVar(&opts.NewPassword, "new-password", "", "New password (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(opts.Token) == "" || opts.NewPassword == "" {
		return errors.New("-token and -new-password are required")
	}

	_, client, err := session(cmdCtx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	msg, err := client.ResetPassword(ctx, strings.TrimSpace(opts.Token), opts.NewPassword)
	if err != nil {
		return err
	}
	if msg == "" {
		msg = "Password updated."
	}
	return writef(cmdCtx.Stdout, "%s\n", msg)
}
