package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/camden-git/pathclassifier/config"
	"github.com/camden-git/pathclassifier/database"
	"github.com/camden-git/pathclassifier/models"
	"github.com/camden-git/pathclassifier/permissions"
	"github.com/camden-git/pathclassifier/repository"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// userCommand groups the account management subcommands. cfg is filled in by the root
// PersistentPreRunE before any of them run.
func userCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts and permissions",
	}

	withRepo := func(fn func(repo repository.UserRepository) error) error {
		db, err := openDatabase(*cfg)
		if err != nil {
			return err
		}
		defer database.Close(db)
		return fn(repository.NewGormUserRepository(db))
	}

	var (
		username    string
		password    string
		email       string
		contributor bool
	)
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(func(repo repository.UserRepository) error {
				user, err := createUser(repo, username, password, email, contributor)
				if err != nil {
					return err
				}
				cmd.Printf("Created user %s (id %d, contributor: %t)\n", user.Username, user.ID, user.IsContributor())
				return nil
			})
		},
	}
	createCmd.Flags().StringVar(&username, "username", "", "Username of the new account")
	createCmd.Flags().StringVar(&password, "password", "", "Password of the new account")
	createCmd.Flags().StringVar(&email, "email", "", "Optional email address")
	createCmd.Flags().BoolVar(&contributor, "contributor", false, "Allow the account to submit images")
	_ = createCmd.MarkFlagRequired("username")
	_ = createCmd.MarkFlagRequired("password")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List user accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(func(repo repository.UserRepository) error {
				users, err := repo.ListAll()
				if err != nil {
					return fmt.Errorf("failed to list users: %w", err)
				}
				for _, u := range users {
					cmd.Printf("%d\t%s\tactive=%t\tpermissions=%s\n", u.ID, u.Username, u.IsActive, strings.Join(u.GlobalPermissions, ","))
				}
				return nil
			})
		},
	}

	var deleteUsername string
	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a user together with their submissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(func(repo repository.UserRepository) error {
				if err := deleteUser(repo, deleteUsername); err != nil {
					return err
				}
				cmd.Printf("Deleted user %s\n", deleteUsername)
				return nil
			})
		},
	}
	deleteCmd.Flags().StringVar(&deleteUsername, "username", "", "Account to delete")
	_ = deleteCmd.MarkFlagRequired("username")

	cmd.AddCommand(
		createCmd,
		listCmd,
		deleteCmd,
		activeCommand("activate", "Allow an account to log in again", true, withRepo),
		activeCommand("deactivate", "Block an account without deleting its submissions", false, withRepo),
		permissionCommand("grant", "Grant a global permission", true, withRepo),
		permissionCommand("revoke", "Revoke a global permission", false, withRepo),
	)
	return cmd
}

func activeCommand(use, short string, active bool, withRepo func(func(repository.UserRepository) error) error) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(func(repo repository.UserRepository) error {
				if err := setActive(repo, username, active); err != nil {
					return err
				}
				cmd.Printf("User %s active=%t\n", username, active)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Account to modify")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func permissionCommand(use, short string, grant bool, withRepo func(func(repository.UserRepository) error) error) *cobra.Command {
	var username, permission string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(func(repo repository.UserRepository) error {
				changed, err := changePermission(repo, username, permission, grant)
				if err != nil {
					return err
				}
				if !changed {
					cmd.Printf("No change for %s\n", username)
					return nil
				}
				def, _ := permissions.GetPermissionDefinition(permission)
				cmd.Printf("Updated permissions of %s: %s %s (%s)\n", username, use, def.Key, def.Name)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Account to modify")
	cmd.Flags().StringVar(&permission, "permission", permissions.SubmissionCreate, "Permission key, see GET /api/v1/permissions")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func createUser(repo repository.UserRepository, username, password, email string, contributor bool) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}
	if _, err := repo.GetByUsername(username); err == nil {
		return nil, fmt.Errorf("user %s already exists", username)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up user %s: %w", username, err)
	}

	user := &models.User{
		Username:          username,
		Email:             strings.TrimSpace(email),
		IsActive:          true,
		GlobalPermissions: []string{},
	}
	if err := user.SetPassword(password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if contributor {
		user.Grant(permissions.SubmissionCreate)
	}
	if err := repo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", username, err)
	}
	return user, nil
}

func changePermission(repo repository.UserRepository, username, permission string, grant bool) (bool, error) {
	if !permissions.IsValidPermissionKey(permission) {
		return false, fmt.Errorf("unknown permission %q, valid keys: %s", permission, strings.Join(permissions.GetAllPermissionKeys(), ", "))
	}
	user, err := repo.GetByUsername(username)
	if err != nil {
		return false, fmt.Errorf("failed to find user %s: %w", username, err)
	}

	var changed bool
	if grant {
		changed = user.Grant(permission)
	} else {
		changed = user.Revoke(permission)
	}
	if !changed {
		return false, nil
	}
	if err := repo.SetUserGlobalPermissions(user.ID, user.GlobalPermissions); err != nil {
		return false, fmt.Errorf("failed to update permissions of %s: %w", username, err)
	}
	return true, nil
}

func setActive(repo repository.UserRepository, username string, active bool) error {
	user, err := repo.GetByUsername(username)
	if err != nil {
		return fmt.Errorf("failed to find user %s: %w", username, err)
	}
	user.IsActive = active
	if err := repo.Update(user); err != nil {
		return fmt.Errorf("failed to update user %s: %w", username, err)
	}
	return nil
}

// deleteUser removes the account together with its submissions and their scores. Images and
// labels stay since other submissions may share them.
func deleteUser(repo repository.UserRepository, username string) error {
	user, err := repo.GetByUsername(username)
	if err != nil {
		return fmt.Errorf("failed to find user %s: %w", username, err)
	}
	if err := repo.Delete(user.ID); err != nil {
		return fmt.Errorf("failed to delete user %s: %w", username, err)
	}
	return nil
}
