package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeWeather(t *testing.T) {
	t.Run("utc to local wall time", func(t *testing.T) {
		obs, dropped := NormalizeWeather([]RawWeather{
			{Year: "2018", Month: "6", Day: "1", Time: "09:00:00", TimeZone: "UTC", AirTemperature: "15.2"},
		}, HelsinkiOffset)

		require.Len(t, obs, 1)
		assert.Zero(t, dropped)
		assert.Equal(t, "2018-06-01 11:00:00", obs[0].Timestamp.Format(TimestampLayout))
		require.NotNil(t, obs[0].AirTemperatureDegC)
		assert.Equal(t, 15.2, *obs[0].AirTemperatureDegC)
	})

	t.Run("crosses midnight and year", func(t *testing.T) {
		obs, _ := NormalizeWeather([]RawWeather{
			{Year: "2018", Month: "12", Day: "31", Time: "23:00", TimeZone: "UTC", AirTemperature: "-3"},
		}, HelsinkiOffset)

		require.Len(t, obs, 1)
		assert.Equal(t, time.Date(2019, 1, 1, 1, 0, 0, 0, time.UTC), obs[0].Timestamp)
	})

	t.Run("sorted ascending", func(t *testing.T) {
		obs, _ := NormalizeWeather([]RawWeather{
			{Year: "2018", Month: "6", Day: "1", Time: "10:00", TimeZone: "UTC", AirTemperature: "3"},
			{Year: "2018", Month: "6", Day: "1", Time: "08:00", TimeZone: "UTC", AirTemperature: "1"},
			{Year: "2018", Month: "6", Day: "1", Time: "09:00", TimeZone: "UTC", AirTemperature: "2"},
		}, HelsinkiOffset)

		require.Len(t, obs, 3)
		for i := 1; i < len(obs); i++ {
			assert.True(t, obs[i-1].Timestamp.Before(obs[i].Timestamp))
		}
		assert.Equal(t, 1.0, *obs[0].AirTemperatureDegC)
	})

	t.Run("missing temperature kept as nil", func(t *testing.T) {
		obs, dropped := NormalizeWeather([]RawWeather{
			{Year: "2018", Month: "6", Day: "1", Time: "09:00", TimeZone: "UTC", AirTemperature: "-"},
		}, HelsinkiOffset)

		require.Len(t, obs, 1)
		assert.Zero(t, dropped)
		assert.Nil(t, obs[0].AirTemperatureDegC)
	})

	t.Run("malformed rows dropped", func(t *testing.T) {
		obs, dropped := NormalizeWeather([]RawWeather{
			{Year: "2018", Month: "13", Day: "1", Time: "09:00", TimeZone: "UTC", AirTemperature: "1"},
			{Year: "2018", Month: "6", Day: "1", Time: "", TimeZone: "UTC", AirTemperature: "1"},
			{Year: "2018", Month: "6", Day: "1", Time: "09:00", TimeZone: "EET", AirTemperature: "1"},
			{Year: "2018", Month: "6", Day: "1", Time: "09:00", AirTemperature: "1"},
		}, HelsinkiOffset)

		assert.Equal(t, 3, dropped)
		assert.Len(t, obs, 1, "an empty zone is read as UTC")
	})

	t.Run("custom offset", func(t *testing.T) {
		obs, _ := NormalizeWeather([]RawWeather{
			{Year: "2018", Month: "6", Day: "1", Time: "09:00", TimeZone: "UTC", AirTemperature: "1"},
		}, 3*time.Hour)
		assert.Equal(t, 12, obs[0].Timestamp.Hour())
	})
}
