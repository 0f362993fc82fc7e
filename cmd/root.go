package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mikesmitty/swma/pkg/daemon"
	"github.com/mikesmitty/swma/pkg/sensor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "swma",
	Short: "Smooth sensor readings with a sliding window moving average",
	Long: `swma polls a temperature, humidity or light sensor, keeps a moving
average over the last --window readings and publishes the raw and smoothed
values to MQTT with Home Assistant discovery. Without --mqtt-broker the
samples are logged instead.`,
	Run: daemon.Root(),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.swma.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("sensor", sensor.MAX31865, "sensor to poll: max31865, sht4x or tsl2591")
	rootCmd.PersistentFlags().String("metric", sensor.MetricTemperature, "sht4x metric: temperature, humidity or dewpoint")
	rootCmd.PersistentFlags().String("i2cbus", "", "name of the i2c bus")
	rootCmd.PersistentFlags().String("spibus", "", "name of the spi bus")
	rootCmd.PersistentFlags().Duration("interval", 100*time.Millisecond, "sensor polling interval")
	rootCmd.PersistentFlags().Int("window", 600, "number of readings in the moving average")
	rootCmd.PersistentFlags().String("mqtt-broker", "", "mqtt broker url")
	rootCmd.PersistentFlags().Int("mqtt-sample-interval", 10, "publish every nth sample")
	rootCmd.PersistentFlags().Duration("watchdog-timeout", 10*time.Second, "exit when the sensor stops reporting, 0 to disable")

	viper.BindPFlags(rootCmd.PersistentFlags())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".swma" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".swma")
	}

	viper.SetEnvPrefix("swma")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
