// Package mqtt is the charge point's transport to the central system.
//
// Protocol frames travel over an MQTT broker instead of a direct socket:
//
//	charge point --call-->   broker --> central system
//	charge point <--result-- broker <-- central system
//
// The client also keeps a retained presence message on the status topic.
// The broker publishes the offline Last Will if the charge point vanishes
// without closing the connection.
//
// # Usage
//
//	topics := mqtt.Topics{Prefix: cfg.Protocol.TopicPrefix, ChargerID: id}
//	client, err := mqtt.Connect(cfg.MQTT, topics)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(topics.Result(), 1, func(_ string, payload []byte) error {
//	    dispatcher.PushIncomingMessage(payload)
//	    return nil
//	})
//
// Credentials belong in CHARGEPOINT_MQTT_USERNAME / CHARGEPOINT_MQTT_PASSWORD,
// not the config file. Enable TLS (mqtt.broker.tls) for anything beyond a
// local broker.
package mqtt
