package media

import (
	"testing"

	mediasoup "github.com/jiyeyuran/mediasoup-go/v2"
	"github.com/stretchr/testify/require"
)

func TestListenInfosCarryPortRange(t *testing.T) {
	infos := listenInfos(workerSettings{
		announcedAddress: "203.0.113.7",
		rtcMinPort:       40000,
		rtcMaxPort:       49999,
	})

	require.Len(t, infos, 2)
	require.Equal(t, mediasoup.TransportProtocolUDP, infos[0].Protocol)
	require.Equal(t, mediasoup.TransportProtocolTCP, infos[1].Protocol)
	for _, info := range infos {
		require.Equal(t, "0.0.0.0", info.Ip)
		require.Equal(t, "203.0.113.7", info.AnnouncedAddress)
		require.Equal(t, uint16(40000), info.PortRange.Min)
		require.Equal(t, uint16(49999), info.PortRange.Max)
	}
}
