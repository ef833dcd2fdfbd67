package browserprint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const printerListJSON = `{
	"printer": [
		{
			"deviceType": "printer",
			"uid": "ZD420-01",
			"provider": "com.zebra.ds.webdriver.desktop.provider.DefaultDeviceProvider",
			"name": "Zebra ZD420",
			"connection": "usb",
			"version": 2,
			"manufacturer": "Zebra Technologies"
		},
		{
			"deviceType": "printer",
			"uid": "ZT230-07",
			"provider": "com.zebra.ds.webdriver.desktop.provider.DefaultDeviceProvider",
			"name": "Zebra ZT230",
			"connection": "network",
			"version": 2,
			"manufacturer": "Zebra Technologies"
		}
	]
}`

func TestAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/available", r.URL.Path)
		w.Write([]byte(printerListJSON))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	printers, err := client.Available(context.Background())
	require.NoError(t, err)
	require.Len(t, printers, 2)
	assert.Equal(t, "ZD420-01", printers[0].UID)
	assert.Equal(t, "usb", printers[0].Connection)
	assert.Equal(t, 2, printers[0].Version)
}

func TestAvailableServiceDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL)
	_, err := client.Available(context.Background())
	assert.ErrorIs(t, err, ErrNoServiceRunning)
	assert.False(t, client.IsServiceAvailable(context.Background()))
}

func TestDiscoverPrinter(t *testing.T) {
	t.Run("returns first printer", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(printerListJSON))
		}))
		defer server.Close()

		printer, err := NewClient(server.URL).DiscoverPrinter(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "ZD420-01", printer.UID)
	})

	t.Run("no devices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"printer": []}`))
		}))
		defer server.Close()

		_, err := NewClient(server.URL).DiscoverPrinter(context.Background())
		assert.ErrorIs(t, err, ErrNoPrinterFound)
	})
}

func TestSendDocument(t *testing.T) {
	printer := Printer{
		DeviceType: "printer",
		UID:        "ZD420-01",
		Name:       "Zebra ZD420",
		Connection: "usb",
		Version:    2,
	}

	t.Run("posts device envelope as text/plain", func(t *testing.T) {
		var got writeRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/write", r.URL.Path)
			assert.Equal(t, "text/plain", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		}))
		defer server.Close()

		err := NewClient(server.URL).SendDocument(context.Background(), printer, "^XA^XZ")
		require.NoError(t, err)
		assert.Equal(t, printer, got.Device)
		assert.Equal(t, "^XA^XZ", got.Data)
	})

	t.Run("bridge rejection", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("device busy"))
		}))
		defer server.Close()

		err := NewClient(server.URL).SendDocument(context.Background(), printer, "^XA^XZ")
		var writeErr *WriteError
		require.ErrorAs(t, err, &writeErr)
		assert.Equal(t, http.StatusInternalServerError, writeErr.StatusCode)
		assert.Equal(t, "device busy", writeErr.Body)
	})

	t.Run("service down", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		err := NewClient(server.URL).SendDocument(context.Background(), printer, "^XA^XZ")
		assert.ErrorIs(t, err, ErrNoServiceRunning)
	})
}

func TestNewClientDefaultsBaseURL(t *testing.T) {
	client := NewClient("")
	assert.Equal(t, DefaultBaseURL, client.baseURL)
}
