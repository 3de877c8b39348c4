package cli

import (
	"context"
	"os"

	"github.com/securechat/securechat/internal/common"
	"github.com/securechat/securechat/internal/models"
)

// getSimpleText and getPassword are indirections used to facilitate
// testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register walks through account creation: captcha first, then username,
// password and optional profile fields.
func (a *App) Register(ctx context.Context) error {
	challenge, err := a.captchas.Challenge(ctx)
	if err != nil {
		return err
	}
	answer, err := getSimpleText(a.reader, challenge.Question, os.Stdout)
	if err != nil {
		return err
	}

	username, err := getSimpleText(a.reader, "Choose a username", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout, "Choose a password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	var profile models.Profile
	if profile.Email, err = getSimpleText(a.reader, "Email (optional)", os.Stdout); err != nil {
		return err
	}
	if profile.FullName, err = getSimpleText(a.reader, "Full name (optional)", os.Stdout); err != nil {
		return err
	}

	if err := a.authService.Register(ctx, username, password, profile, challenge.ID, answer); err != nil {
		return err
	}

	printlnFn("Account created. You can log in now.")
	return nil
}

func (a *App) Login(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Username", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout, "Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	session, err := a.authService.Login(ctx, username, password)
	if err != nil {
		return err
	}
	a.session = session

	missed, err := a.chatService.MissedSenders(ctx, username)
	if err == nil && len(missed) > 0 {
		printlnFn("New messages while you were away from:", missed)
	}

	printlnFn("Logged in as", username)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if a.session == nil {
		return nil
	}
	if err := a.authService.Logout(ctx, a.session); err != nil {
		return err
	}
	a.session = nil
	printlnFn("Logged out.")
	return nil
}

// ChangePassword re-protects both private keys under the new password. The
// current session stays valid, its keys do not change.
func (a *App) ChangePassword(ctx context.Context) error {
	if err := a.ensureSession(ctx); err != nil {
		return err
	}

	oldPassword, err := getPassword(os.Stdout, "Current password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(oldPassword)
	newPassword, err := getPassword(os.Stdout, "New password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(newPassword)

	if err := a.authService.ChangePassword(ctx, a.session.Username(), oldPassword, newPassword); err != nil {
		return err
	}
	printlnFn("Password changed.")
	return nil
}

func (a *App) ShowProfile(ctx context.Context) error {
	if err := a.ensureSession(ctx); err != nil {
		return err
	}
	p, err := a.authService.GetProfile(ctx, a.session.Username())
	if err != nil {
		return err
	}
	printlnFn("Email:    ", p.Email)
	printlnFn("Full name:", p.FullName)
	printlnFn("Address:  ", p.Address)
	printlnFn("Gender:   ", p.Gender)
	return nil
}

func (a *App) EditProfile(ctx context.Context) error {
	if err := a.ensureSession(ctx); err != nil {
		return err
	}

	var p models.Profile
	var err error
	if p.Email, err = getSimpleText(a.reader, "Email", os.Stdout); err != nil {
		return err
	}
	if p.FullName, err = getSimpleText(a.reader, "Full name", os.Stdout); err != nil {
		return err
	}
	if p.Address, err = getSimpleText(a.reader, "Address", os.Stdout); err != nil {
		return err
	}
	if p.Gender, err = getSimpleText(a.reader, "Gender", os.Stdout); err != nil {
		return err
	}

	if err := a.authService.UpdateProfile(ctx, a.session.Username(), p); err != nil {
		return err
	}
	printlnFn("Profile updated.")
	return nil
}
