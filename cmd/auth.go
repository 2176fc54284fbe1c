package cmd

import (
	"errors"

	"github.com/AlecAivazis/survey/v2"
	"github.com/drmplay-cli/drmplay/auth"
	"github.com/drmplay-cli/drmplay/color"
	"github.com/drmplay-cli/drmplay/icon"
	"github.com/drmplay-cli/drmplay/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authRedisCmd)
	authRedisCmd.Flags().BoolP("remove", "r", false, "Remove the stored password")
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Keep credentials in the system keyring",
}

var authRedisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Store the password of the redis history backend",
	Long: `Store the password of the redis history backend in the system keyring.
It is used whenever history.redis_password is empty.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("remove")) {
			handleErr(auth.Delete(auth.RedisPassword))
			cmd.Printf("%s removed redis password\n", style.Fg(color.Green)(icon.Get(icon.Success)))
			return
		}

		var password string
		handleErr(survey.AskOne(&survey.Password{Message: "Redis password"}, &password))
		if password == "" {
			handleErr(errors.New("password is empty"))
		}

		handleErr(auth.Set(auth.RedisPassword, password))
		cmd.Printf("%s stored redis password in the keyring\n", style.Fg(color.Green)(icon.Get(icon.Success)))
	},
}
